package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gh-nvat/mapdiff/src/pkg/models"
	"github.com/gh-nvat/mapdiff/src/pkg/report"
)

// Template file names looked up in a templates directory
const (
	ReportTemplateFile  = "report.md.tmpl"
	ChangesTemplateFile = "changes.md.tmpl"
	PolicyTemplateFile  = "policy.md.tmpl"
)

// DefaultMaxLines is the number of change lines shown before they are folded
const DefaultMaxLines = 50

// Renderer handles template rendering
type Renderer struct {
	funcMap template.FuncMap
}

// NewRenderer creates a new template renderer
func NewRenderer() *Renderer {
	return &Renderer{
		funcMap: template.FuncMap{
			"gt":      func(a, b int) bool { return a > b },
			"beats":   report.FormatBeats,
			"line":    report.Line,
			"changes": FormatForMarkdown,
		},
	}
}

// RenderReport renders the markdown report. templatesPath may name a directory
// holding the three template files or a single template file; when empty the
// built-in templates are used.
func (r *Renderer) RenderReport(data *models.ReportData, templatesPath string) (string, error) {
	if templatesPath != "" {
		info, err := os.Stat(templatesPath)
		if err != nil {
			return "", fmt.Errorf("failed to read templates: %w", err)
		}
		if !info.IsDir() {
			return r.Render(templatesPath, data)
		}
		return r.RenderWithTemplates(templatesPath, data)
	}
	return r.renderNamed(map[string]string{
		"changes": defaultChangesTemplate,
		"policy":  defaultPolicyTemplate,
	}, defaultReportTemplate, data)
}

// RenderWithTemplates renders templates with support for includes
func (r *Renderer) RenderWithTemplates(templateDir string, data interface{}) (string, error) {
	read := func(name string) (string, error) {
		content, err := os.ReadFile(filepath.Join(templateDir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %w", name, err)
		}
		return string(content), nil
	}

	reportContent, err := read(ReportTemplateFile)
	if err != nil {
		return "", err
	}
	changesContent, err := read(ChangesTemplateFile)
	if err != nil {
		return "", err
	}
	policyContent, err := read(PolicyTemplateFile)
	if err != nil {
		return "", err
	}

	return r.renderNamed(map[string]string{
		"changes": changesContent,
		"policy":  policyContent,
	}, reportContent, data)
}

func (r *Renderer) renderNamed(includes map[string]string, main string, data interface{}) (string, error) {
	tmpl := template.New("").Funcs(r.funcMap)
	for name, content := range includes {
		if _, err := tmpl.New(name).Parse(content); err != nil {
			return "", fmt.Errorf("failed to parse %s template: %w", name, err)
		}
	}

	mainTmpl, err := tmpl.New("report").Parse(main)
	if err != nil {
		return "", fmt.Errorf("failed to parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := mainTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// Render renders a template file with the provided data
func (r *Renderer) Render(templatePath string, data interface{}) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	return r.RenderString(string(content), data)
}

// RenderString renders a template string with the provided data
func (r *Renderer) RenderString(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("template").Funcs(r.funcMap).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// FormatForMarkdown formats the text report for display in markdown.
// Reports longer than DefaultMaxLines change lines are wrapped in <details>.
func FormatForMarkdown(text string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) <= 1 {
		return "_No changes detected_"
	}
	body := strings.Join(lines[1:], "\n")
	changeCount := len(lines) - 1

	var result strings.Builder
	if changeCount > DefaultMaxLines {
		result.WriteString(fmt.Sprintf("<details>\n<summary>%d changes (click to expand)</summary>\n\n", changeCount))
		result.WriteString("```diff\n")
		result.WriteString(body)
		result.WriteString("\n```\n")
		result.WriteString("</details>")
		return result.String()
	}

	result.WriteString("```diff\n")
	result.WriteString(body)
	result.WriteString("\n```")
	return result.String()
}

const defaultReportTemplate = `<!-- mapdiff: {{.Comparison.ID}} -->

# 🎵 Map Changes: {{if .Comparison.NewSongName}}{{.Comparison.NewSongName}}{{else}}{{.Comparison.Characteristic}}{{end}}

| Timestamp | Characteristic | Difficulty | Lights |
|-|-|-|-|
| {{.Comparison.Timestamp.Format "2006-01-02 15:04:05 UTC"}} | ` + "`{{.Comparison.Characteristic}}`" + ` | ` + "`{{.Comparison.Difficulty}}`" + ` | {{if .Comparison.IncludeLights}}included{{else}}ignored{{end}} |

{{template "changes" .Comparison}}
{{if .PolicyReport}}
{{template "policy" .PolicyReport}}
{{end}}
---

_Generated by mapdiff_
`

const defaultChangesTemplate = `## 📊 Changes

**Total:** {{.Summary.Total}} | **Added:** {{.Summary.Added}} | **Removed:** {{.Summary.Removed}} | **Modified:** {{.Summary.Modified}}

{{changes .Text}}
`

const defaultPolicyTemplate = `## 🛡️ Policy Evaluation

**{{.PassedPolicies}}/{{.TotalPolicies}} passed**{{if gt .FailedPolicies 0}} | ❌ {{.FailedPolicies}} failed{{end}}{{if gt .ErroredPolicies 0}} | 💥 {{.ErroredPolicies}} errored{{end}}
{{if .Enforcement}}
> {{if .Enforcement.ShouldBlock}}⛔{{else if .Enforcement.ShouldWarn}}⚠️{{else}}✅{{end}} {{.Enforcement.Summary}}
{{end}}
| Policy | Level | Status | Message |
|--------|-------|--------|---------|
{{range .Details}}| {{.Name}} | {{.Level}} | {{.Status}}{{if .Overridden}} (overridden){{end}} | {{if .Error}}{{.Error}}{{else}}{{range $i, $v := .Violations}}{{if $i}}<br>{{end}}{{$v}}{{end}}{{end}} |
{{end}}`
