package models

import (
	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
	"github.com/gh-nvat/mapdiff/src/pkg/config"
)

// LoadResult holds both map versions once fetched
type LoadResult struct {
	Old *beatmap.Beatmap
	New *beatmap.Beatmap
}

// PolicyResult represents the result of policy evaluation
type PolicyResult struct {
	EvalResult   *config.EvaluationResult
	PolicyReport *config.PolicyReportData
	Enforcement  *config.EnforcementResult
}

// OutputResult lists the files written by a run
type OutputResult struct {
	Files []string
}
