package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gh-nvat/mapdiff/src/pkg/compare"
	"github.com/gh-nvat/mapdiff/src/pkg/config"
	"github.com/gh-nvat/mapdiff/src/pkg/models"
	"github.com/gh-nvat/mapdiff/src/pkg/policy"
	"github.com/gh-nvat/mapdiff/src/pkg/report"
	"github.com/gh-nvat/mapdiff/src/pkg/template"
	"github.com/gh-nvat/mapdiff/src/pkg/trace"

	log "github.com/sirupsen/logrus"
)

var logger *log.Entry = log.WithFields(log.Fields{
	"package": "runner",
})

// Report files written to the output directory
const (
	ReportJSONFile     = "report.json"
	ReportTextFile     = "report.txt"
	ReportMarkdownFile = "report.md"
)

// BlockedError is returned by Process when a blocking policy failed
type BlockedError struct {
	Summary string
}

func (e *BlockedError) Error() string {
	return "update blocked by policy: " + e.Summary
}

type RunnerBase struct {
	Context context.Context
	Options *Options

	Service   *compare.Service
	Evaluator *policy.Evaluator
	Reporter  *policy.Reporter
	Renderer  *template.Renderer

	// Stdout receives the report in the selected format
	Stdout io.Writer

	policyConfig *config.PolicyFile
}

// make RunnerBase implement RunnerInterface
var _ RunnerInterface = (*RunnerBase)(nil)

func NewRunnerBase(
	ctx context.Context,
	options *Options,
	service *compare.Service,
	evaluator *policy.Evaluator,
	renderer *template.Renderer,
) (*RunnerBase, error) {
	runner := &RunnerBase{
		Context:   ctx,
		Options:   options,
		Service:   service,
		Evaluator: evaluator,
		Reporter:  policy.NewReporter(),
		Renderer:  renderer,
		Stdout:    os.Stdout,
	}
	return runner, nil
}

func (r *RunnerBase) Initialize() error {
	logger.Info("Initializing runner: starting...")

	// if any is nil, return error
	if r.Options == nil || r.Service == nil || r.Evaluator == nil || r.Renderer == nil {
		return fmt.Errorf("options, service, evaluator and renderer are required")
	}
	if r.Options.OldRef == "" || r.Options.NewRef == "" {
		return fmt.Errorf("both an old and a new map are required")
	}
	switch r.Options.Format {
	case "", FormatText, FormatJSON, FormatMarkdown:
	default:
		return fmt.Errorf("unsupported format %q", r.Options.Format)
	}

	if r.Options.PoliciesPath == "" {
		logger.Info("Initialize runner: no policies path, policy evaluation disabled")
	} else {
		logger.Info("Initialize runner: Evaluator: Loading and validating policy configuration")
		cfg, err := r.Evaluator.LoadAndValidate(filepath.Join(r.Options.PoliciesPath, config.PolicyConfigFileName), r.Options.PoliciesPath)
		if err != nil {
			return fmt.Errorf("failed to load policy config: %w", err)
		}
		r.policyConfig = cfg
	}

	logger.Info("Initialize runner: done.")
	return nil
}

func (r *RunnerBase) LoadMaps() (*models.LoadResult, error) {
	logger.Info("LoadMaps: starting...")

	loaded, err := r.Service.Load(r.Context, r.Options.OldRef, r.Options.NewRef)
	if err != nil {
		return nil, err
	}

	logger.WithField("oldSong", loaded.Old.SongName).WithField("newSong", loaded.New.SongName).Debug("Loaded maps")
	logger.Info("LoadMaps: done.")
	return loaded, nil
}

func (r *RunnerBase) Compare(loaded *models.LoadResult) (*models.Comparison, error) {
	logger.Info("Compare: starting...")

	c, err := r.Service.CompareLoaded(r.Context, loaded, models.CompareRequest{
		OldRef:         r.Options.OldRef,
		NewRef:         r.Options.NewRef,
		Difficulty:     r.Options.Difficulty,
		Characteristic: r.Options.Characteristic,
		IncludeLights:  r.Options.IncludeLights,
	})
	if err != nil {
		logger.WithField("error", err).Error("Failed to compare maps")
		return nil, err
	}

	logger.WithField("summary", c.Summary).Debug("Compared maps")
	logger.Info("Compare: done.")
	return c, nil
}

func (r *RunnerBase) EvaluatePolicies(c *models.Comparison) (*models.PolicyResult, error) {
	if r.policyConfig == nil {
		return nil, nil
	}
	logger.Info("EvaluatePolicies: starting...")

	ctx, span := trace.StartSpan(r.Context, "policy.evaluate")
	defer span.End()

	evalResult, err := r.Evaluator.Evaluate(ctx, c, r.policyConfig, r.Options.PoliciesPath)
	if err != nil {
		return nil, err
	}

	overrides := r.Evaluator.CheckOverrides(r.Options.Notes, r.policyConfig)
	r.Evaluator.ApplyOverrides(evalResult, overrides)
	enforcement := r.Evaluator.Enforce(evalResult, overrides)

	logger.WithField("summary", enforcement.Summary).Info("EvaluatePolicies: done.")
	return &models.PolicyResult{
		EvalResult:   evalResult,
		PolicyReport: r.Reporter.GenerateReport(evalResult, r.policyConfig, enforcement),
		Enforcement:  enforcement,
	}, nil
}

func (r *RunnerBase) Process() error {
	logger.Info("Process: starting...")

	loaded, err := r.LoadMaps()
	if err != nil {
		return err
	}

	c, err := r.Compare(loaded)
	if err != nil {
		return err
	}

	policyResult, err := r.EvaluatePolicies(c)
	if err != nil {
		return err
	}

	reportData := models.ReportData{Comparison: c}
	if policyResult != nil {
		reportData.PolicyReport = policyResult.PolicyReport
		reportData.Enforcement = policyResult.Enforcement
	}

	if err := r.Output(&reportData); err != nil {
		return err
	}

	logger.Info("Process: done.")
	if reportData.Enforcement != nil && reportData.Enforcement.ShouldBlock {
		return &BlockedError{Summary: reportData.Enforcement.Summary}
	}
	return nil
}

func (r *RunnerBase) Output(data *models.ReportData) error {
	logger.Info("Output: starting...")

	files, err := r.outputReportFiles(data)
	if err != nil {
		return err
	}
	for _, f := range files.Files {
		logger.WithField("filePath", f).Info("Written report to file")
	}

	if err := r.outputStdout(data); err != nil {
		return err
	}

	logger.Info("Output: done.")
	return nil
}

func (r *RunnerBase) outputStdout(data *models.ReportData) error {
	if r.Stdout == nil {
		return nil
	}

	var out string
	switch r.Options.Format {
	case FormatJSON:
		raw, err := report.MarshalJSON(data.Comparison.Entries)
		if err != nil {
			return err
		}
		out = string(raw) + "\n"
	case FormatMarkdown:
		md, err := r.Renderer.RenderReport(data, r.Options.TemplatesPath)
		if err != nil {
			return err
		}
		out = md
	default:
		out = data.Comparison.Text
		if r.Options.Color {
			out = Colorize(out)
		}
		if data.Enforcement != nil {
			out += "Policies --- " + data.Enforcement.Summary + "\n"
		}
	}

	_, err := io.WriteString(r.Stdout, out)
	return err
}

// Exporting report files to output directory if enabled
func (r *RunnerBase) outputReportFiles(data *models.ReportData) (*models.OutputResult, error) {
	result := &models.OutputResult{}
	if r.Options.OutputDir == "" {
		logger.Info("OutputFiles: no output directory, skipping")
		return result, nil
	}
	logger.Info("OutputFiles: starting...")

	if err := os.MkdirAll(r.Options.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	resultsJson, err := json.MarshalIndent(models.JSONReport{Comparison: data.Comparison, Policy: data.PolicyReport}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	md, err := r.Renderer.RenderReport(data, r.Options.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown report: %w", err)
	}

	files := []struct {
		name    string
		content []byte
	}{
		{ReportJSONFile, resultsJson},
		{ReportTextFile, []byte(data.Comparison.Text)},
		{ReportMarkdownFile, []byte(md)},
	}
	for _, f := range files {
		filePath := filepath.Join(r.Options.OutputDir, f.name)
		if err := os.WriteFile(filePath, f.content, 0644); err != nil {
			logger.WithField("filePath", filePath).WithField("error", err).Error("Failed to write report to file")
			return nil, err
		}
		result.Files = append(result.Files, filePath)
	}

	return result, nil
}
