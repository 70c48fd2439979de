package config

import "time"

// PolicyFile represents the complete change-policy configuration
type PolicyFile struct {
	Policies map[string]PolicyConfig `yaml:"policies"`
}

// PolicyConfig represents a single policy configuration
type PolicyConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Type        string            `yaml:"type"` // "opa" only for now
	FilePath    string            `yaml:"filePath"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
}

// EnforcementConfig defines when and how a policy should be enforced
type EnforcementConfig struct {
	InEffectAfter   *time.Time     `yaml:"inEffectAfter,omitempty"`
	IsWarningAfter  *time.Time     `yaml:"isWarningAfter,omitempty"`
	IsBlockingAfter *time.Time     `yaml:"isBlockingAfter,omitempty"`
	Override        OverrideConfig `yaml:"override"`
}

// OverrideConfig defines how a policy can be overridden
type OverrideConfig struct {
	Keyword string `yaml:"keyword"` // e.g., "#lighting-only-update"
}

// EvaluationResult represents the result of policy evaluation
type EvaluationResult struct {
	TotalPolicies   int            `json:"totalPolicies"`
	PassedPolicies  int            `json:"passedPolicies"`
	FailedPolicies  int            `json:"failedPolicies"`
	ErroredPolicies int            `json:"erroredPolicies"`
	PolicyResults   []PolicyResult `json:"policyResults"`
}

// PolicyResult represents the result of a single policy evaluation
type PolicyResult struct {
	PolicyID   string   `json:"policyId"`
	PolicyName string   `json:"policyName"`
	Status     string   `json:"status"` // "PASS", "FAIL", "ERROR"
	Violations []string `json:"violations,omitempty"`
	Error      string   `json:"error,omitempty"`
	Level      string   `json:"level"` // "RECOMMEND", "WARNING", "BLOCK", "DISABLED"
	Overridden bool     `json:"overridden,omitempty"`
}

// EnforcementResult represents the enforcement decision
type EnforcementResult struct {
	ShouldBlock bool   `json:"shouldBlock"`
	ShouldWarn  bool   `json:"shouldWarn"`
	Summary     string `json:"summary"`
}

// PolicyReportData represents policy report data for templates
type PolicyReportData struct {
	TotalPolicies     int                `json:"totalPolicies"`
	PassedPolicies    int                `json:"passedPolicies"`
	FailedPolicies    int                `json:"failedPolicies"`
	ErroredPolicies   int                `json:"erroredPolicies"`
	BlockingFailures  int                `json:"blockingFailures"`
	WarningFailures   int                `json:"warningFailures"`
	RecommendFailures int                `json:"recommendFailures"`
	Details           []PolicyDetail     `json:"details"`
	Enforcement       *EnforcementResult `json:"enforcement,omitempty"`
}

// PolicyDetail represents a single policy detail for reporting
type PolicyDetail struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Level       string   `json:"level"`
	Overridden  bool     `json:"overridden,omitempty"`
	Error       string   `json:"error,omitempty"`
	Violations  []string `json:"violations,omitempty"`
}
