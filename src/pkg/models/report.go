package models

import (
	"github.com/gh-nvat/mapdiff/src/pkg/config"
)

// ReportData represents the complete report data structure
type ReportData struct {
	Comparison *Comparison

	// Policy evaluation results, nil when no policies are configured
	PolicyReport *config.PolicyReportData
	Enforcement  *config.EnforcementResult
}

// JSONReport is the document written to report.json
type JSONReport struct {
	*Comparison
	Policy *config.PolicyReportData `json:"policy,omitempty"`
}
