package runner

import (
	"context"

	"github.com/gh-nvat/mapdiff/src/pkg/compare"
	"github.com/gh-nvat/mapdiff/src/pkg/models"
	"github.com/gh-nvat/mapdiff/src/pkg/policy"
	"github.com/gh-nvat/mapdiff/src/pkg/template"
)

// RunnerLocal compares maps for a single CLI invocation
type RunnerLocal struct {
	RunnerBase
}

// make RunnerLocal implement RunnerInterface
var _ RunnerInterface = (*RunnerLocal)(nil)

func NewRunnerLocal(
	ctx context.Context,
	options *Options,
	service *compare.Service,
	evaluator *policy.Evaluator,
	renderer *template.Renderer,
) (*RunnerLocal, error) {
	baseRunner, err := NewRunnerBase(ctx, options, service, evaluator, renderer)
	if err != nil {
		return nil, err
	}
	runner := &RunnerLocal{
		RunnerBase: *baseRunner,
	}
	return runner, nil
}

func (r *RunnerLocal) Initialize() error {
	return r.RunnerBase.Initialize()
}

func (r *RunnerLocal) LoadMaps() (*models.LoadResult, error) {
	return r.RunnerBase.LoadMaps()
}

func (r *RunnerLocal) Compare(loaded *models.LoadResult) (*models.Comparison, error) {
	return r.RunnerBase.Compare(loaded)
}

func (r *RunnerLocal) EvaluatePolicies(c *models.Comparison) (*models.PolicyResult, error) {
	return r.RunnerBase.EvaluatePolicies(c)
}

func (r *RunnerLocal) Process() error {
	return r.RunnerBase.Process()
}

func (r *RunnerLocal) Output(data *models.ReportData) error {
	return r.RunnerBase.Output(data)
}
