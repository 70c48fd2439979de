package runner

import "github.com/gh-nvat/mapdiff/src/pkg/models"

type RunnerInterface interface {
	// Initialize the runner with necessary context and data
	Initialize() error

	// Fetch both map versions
	LoadMaps() (*models.LoadResult, error)

	// Compare the selected difficulty of the loaded maps
	Compare(*models.LoadResult) (*models.Comparison, error)

	// Evaluate change policies against a comparison
	EvaluatePolicies(*models.Comparison) (*models.PolicyResult, error)

	// Main routine to process the runner
	Process() error

	// Handling the export
	Output(data *models.ReportData) error
}
