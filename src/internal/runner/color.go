package runner

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gh-nvat/mapdiff/src/pkg/report"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	addedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	removedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	modifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// Colorize styles a text report line by line for a terminal
func Colorize(text string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		switch {
		case i == 0:
			line = headerStyle.Render(line)
		case strings.HasPrefix(line, report.PrefixAdded):
			line = addedStyle.Render(line)
		case strings.HasPrefix(line, report.PrefixRemoved):
			line = removedStyle.Render(line)
		case strings.HasPrefix(line, report.PrefixModified):
			line = modifiedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
