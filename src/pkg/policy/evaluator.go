package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/open-policy-agent/opa/rego"
	log "github.com/sirupsen/logrus"

	"github.com/gh-nvat/mapdiff/src/pkg/config"
	"github.com/gh-nvat/mapdiff/src/pkg/diff"
	"github.com/gh-nvat/mapdiff/src/pkg/models"
)

const (
	POLICY_STATUS_PASS  = "PASS"
	POLICY_STATUS_FAIL  = "FAIL"
	POLICY_STATUS_ERROR = "ERROR"

	POLICY_LEVEL_DISABLED  = "DISABLED"
	POLICY_LEVEL_RECOMMEND = "RECOMMEND"
	POLICY_LEVEL_WARNING   = "WARNING"
	POLICY_LEVEL_BLOCK     = "BLOCK"
)

// Query is the rego rule every policy module must define
const Query = "data.mapdiff.deny"

var logger = log.WithField("package", "policy")

// PolicyEvaluator defines the interface for policy evaluation operations
type PolicyEvaluator interface {
	// LoadAndValidate loads and validates the policy configuration
	LoadAndValidate(configPath, policiesPath string) (*config.PolicyFile, error)
	// Evaluate evaluates all policies against a comparison
	Evaluate(ctx context.Context, comparison *models.Comparison, cfg *config.PolicyFile, policiesPath string) (*config.EvaluationResult, error)
	// CheckOverrides checks the update notes for policy override keywords
	CheckOverrides(notes []string, cfg *config.PolicyFile) map[string]bool
	// Enforce determines if the evaluation result should block the update
	Enforce(result *config.EvaluationResult, overrides map[string]bool) *config.EnforcementResult
	// ApplyOverrides applies policy overrides to the evaluation result
	ApplyOverrides(result *config.EvaluationResult, overrides map[string]bool)
}

// Evaluator handles policy evaluation
type Evaluator struct {
	loader *config.Loader
	now    func() time.Time
}

// Ensure Evaluator implements PolicyEvaluator
var _ PolicyEvaluator = (*Evaluator)(nil)

// NewEvaluator creates a new policy evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{
		loader: config.NewLoader(),
		now:    time.Now,
	}
}

// WithClock returns a copy of the evaluator that reads the current time from now
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	return &Evaluator{loader: e.loader, now: now}
}

// LoadAndValidate loads and validates the policy configuration
func (e *Evaluator) LoadAndValidate(configPath, policiesPath string) (*config.PolicyFile, error) {
	// Load configuration
	cfg, err := e.loader.LoadPolicyConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Validate configuration structure
	if err := e.loader.ValidatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	// Validate policy files exist
	for _, id := range policyIDs(cfg) {
		policy := cfg.Policies[id]
		policyPath := filepath.Join(policiesPath, policy.FilePath)
		if _, err := os.Stat(policyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("policy %s: file not found: %s", id, policyPath)
		}

		// Check for test file (support both .rego and .opa extensions)
		var testPath string
		if strings.HasSuffix(policyPath, ".rego") {
			testPath = strings.TrimSuffix(policyPath, ".rego") + "_test.rego"
		} else if strings.HasSuffix(policyPath, ".opa") {
			testPath = strings.TrimSuffix(policyPath, ".opa") + "_test.opa"
		} else {
			return nil, fmt.Errorf("policy %s: unsupported file extension (must be .rego or .opa)", id)
		}

		if _, err := os.Stat(testPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("policy %s: test file not found: %s", id, testPath)
		}
	}

	return cfg, nil
}

// Evaluate evaluates all policies against a comparison, in policy id order
func (e *Evaluator) Evaluate(ctx context.Context, comparison *models.Comparison, cfg *config.PolicyFile, policiesPath string) (*config.EvaluationResult, error) {
	result := &config.EvaluationResult{
		TotalPolicies: len(cfg.Policies),
		PolicyResults: make([]config.PolicyResult, 0, len(cfg.Policies)),
	}

	input, err := BuildInput(comparison)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy input: %w", err)
	}

	for _, id := range policyIDs(cfg) {
		policyResult := e.evaluatePolicy(ctx, id, cfg.Policies[id], input, policiesPath)
		result.PolicyResults = append(result.PolicyResults, policyResult)

		switch policyResult.Status {
		case POLICY_STATUS_PASS:
			result.PassedPolicies++
		case POLICY_STATUS_FAIL:
			result.FailedPolicies++
		case POLICY_STATUS_ERROR:
			result.ErroredPolicies++
		}
	}

	logger.WithFields(log.Fields{
		"passed":  result.PassedPolicies,
		"failed":  result.FailedPolicies,
		"errored": result.ErroredPolicies,
	}).Debug("Evaluated policies")

	return result, nil
}

// BuildInput converts a comparison into the generic document passed as rego input
func BuildInput(c *models.Comparison) (map[string]interface{}, error) {
	entries := c.Entries
	if entries == nil {
		entries = []diff.Entry{}
	}
	doc := struct {
		Difficulty      string       `json:"difficulty"`
		Characteristic  string       `json:"characteristic"`
		IncludeLights   bool         `json:"includeLights"`
		GameplayChanged bool         `json:"gameplayChanged"`
		Summary         diff.Summary `json:"summary"`
		Entries         []diff.Entry `json:"entries"`
	}{
		Difficulty:      c.Difficulty,
		Characteristic:  c.Characteristic,
		IncludeLights:   c.IncludeLights,
		GameplayChanged: c.GameplayChanged(),
		Summary:         c.Summary,
		Entries:         entries,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var input map[string]interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return input, nil
}

// evaluatePolicy evaluates a single policy against the input
func (e *Evaluator) evaluatePolicy(ctx context.Context, id string, policy config.PolicyConfig, input map[string]interface{}, policiesPath string) config.PolicyResult {
	result := config.PolicyResult{
		PolicyID:   id,
		PolicyName: policy.Name,
		Status:     POLICY_STATUS_PASS,
		Violations: []string{},
	}

	// Determine enforcement level
	result.Level = e.determineEnforcementLevel(policy.Enforcement)

	// If policy is not in effect, skip it
	if result.Level == POLICY_LEVEL_DISABLED {
		return result
	}

	// Load OPA policy
	policyPath := filepath.Join(policiesPath, policy.FilePath)
	policyContent, err := os.ReadFile(policyPath)
	if err != nil {
		result.Status = POLICY_STATUS_ERROR
		result.Error = fmt.Sprintf("Failed to read policy file: %v", err)
		return result
	}

	violations, err := e.evaluateWithOPA(ctx, policyContent, input)
	if err != nil {
		result.Status = POLICY_STATUS_ERROR
		result.Error = fmt.Sprintf("Policy evaluation failed: %v", err)
		return result
	}
	result.Violations = append(result.Violations, violations...)

	// Set status based on violations
	if len(result.Violations) > 0 {
		result.Status = POLICY_STATUS_FAIL
	}

	return result
}

// evaluateWithOPA evaluates the input using OPA
func (e *Evaluator) evaluateWithOPA(ctx context.Context, policyContent []byte, input map[string]interface{}) ([]string, error) {
	// Create Rego query
	query, err := rego.New(
		rego.Query(Query),
		rego.Module("policy.rego", string(policyContent)),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to prepare OPA query: %w", err)
	}

	// Evaluate
	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// Extract violations
	var violations []string
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		if denySet, ok := results[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range denySet {
				if msg, ok := v.(string); ok {
					violations = append(violations, msg)
				}
			}
		}
	}
	slices.Sort(violations)

	return violations, nil
}

// determineEnforcementLevel determines the current enforcement level based on time
func (e *Evaluator) determineEnforcementLevel(enforcement config.EnforcementConfig) string {
	now := e.now()

	// Check if policy is in effect
	if enforcement.InEffectAfter != nil && now.Before(*enforcement.InEffectAfter) {
		return POLICY_LEVEL_DISABLED
	}

	// Check blocking level
	if enforcement.IsBlockingAfter != nil && !now.Before(*enforcement.IsBlockingAfter) {
		return POLICY_LEVEL_BLOCK
	}

	// Check warning level
	if enforcement.IsWarningAfter != nil && !now.Before(*enforcement.IsWarningAfter) {
		return POLICY_LEVEL_WARNING
	}

	// Default to recommend if in effect
	if enforcement.InEffectAfter != nil {
		return POLICY_LEVEL_RECOMMEND
	}

	return POLICY_LEVEL_DISABLED
}

// CheckOverrides checks update notes for policy override keywords
func (e *Evaluator) CheckOverrides(notes []string, cfg *config.PolicyFile) map[string]bool {
	overrides := make(map[string]bool)

	for policyID, policy := range cfg.Policies {
		if policy.Enforcement.Override.Keyword == "" {
			continue
		}

		for _, note := range notes {
			if strings.Contains(note, policy.Enforcement.Override.Keyword) {
				overrides[policyID] = true
				break
			}
		}
	}

	return overrides
}

// Enforce determines the enforcement action based on results and overrides
func (e *Evaluator) Enforce(result *config.EvaluationResult, overrides map[string]bool) *config.EnforcementResult {
	enforcement := &config.EnforcementResult{}

	blockingCount := 0
	warningCount := 0

	for _, pr := range result.PolicyResults {
		if pr.Status != POLICY_STATUS_FAIL {
			continue
		}

		// Check if overridden
		if overrides[pr.PolicyID] {
			continue
		}

		switch pr.Level {
		case POLICY_LEVEL_BLOCK:
			blockingCount++
			enforcement.ShouldBlock = true
		case POLICY_LEVEL_WARNING:
			warningCount++
			enforcement.ShouldWarn = true
		}
	}

	if blockingCount > 0 {
		enforcement.Summary = fmt.Sprintf("%d blocking policy failure(s)", blockingCount)
	} else if warningCount > 0 {
		enforcement.Summary = fmt.Sprintf("%d warning policy failure(s)", warningCount)
	} else {
		enforcement.Summary = "All checks passed"
	}

	return enforcement
}

// ApplyOverrides applies overrides to policy results
func (e *Evaluator) ApplyOverrides(result *config.EvaluationResult, overrides map[string]bool) {
	for i := range result.PolicyResults {
		if overrides[result.PolicyResults[i].PolicyID] {
			result.PolicyResults[i].Overridden = true
		}
	}
}

func policyIDs(cfg *config.PolicyFile) []string {
	ids := make([]string, 0, len(cfg.Policies))
	for id := range cfg.Policies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
