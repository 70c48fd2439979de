package policy

import (
	"github.com/gh-nvat/mapdiff/src/pkg/config"
)

// Reporter generates policy evaluation reports
type Reporter struct{}

// NewReporter creates a new policy reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// GenerateReport generates a policy report from evaluation results.
// Descriptions are taken from cfg when it is not nil.
func (r *Reporter) GenerateReport(result *config.EvaluationResult, cfg *config.PolicyFile, enforcement *config.EnforcementResult) *config.PolicyReportData {
	report := &config.PolicyReportData{
		TotalPolicies:   result.TotalPolicies,
		PassedPolicies:  result.PassedPolicies,
		FailedPolicies:  result.FailedPolicies,
		ErroredPolicies: result.ErroredPolicies,
		Details:         make([]config.PolicyDetail, 0, len(result.PolicyResults)),
		Enforcement:     enforcement,
	}

	// Count failures by level
	for _, pr := range result.PolicyResults {
		if pr.Status == POLICY_STATUS_FAIL && !pr.Overridden {
			switch pr.Level {
			case POLICY_LEVEL_BLOCK:
				report.BlockingFailures++
			case POLICY_LEVEL_WARNING:
				report.WarningFailures++
			case POLICY_LEVEL_RECOMMEND:
				report.RecommendFailures++
			}
		}

		detail := config.PolicyDetail{
			Name:       pr.PolicyName,
			Status:     pr.Status,
			Level:      pr.Level,
			Overridden: pr.Overridden,
			Error:      pr.Error,
			Violations: append([]string(nil), pr.Violations...),
		}
		if cfg != nil {
			detail.Description = cfg.Policies[pr.PolicyID].Description
		}

		report.Details = append(report.Details, detail)
	}

	return report
}
