package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PolicyConfigFileName is the policy config file looked up in a policies directory
const PolicyConfigFileName = "policy-config.yaml"

// ConfigLoader defines the interface for loading configuration files
type ConfigLoader interface {
	// LoadPolicyConfig loads the policy configuration from a YAML file
	LoadPolicyConfig(path string) (*PolicyFile, error)
	// ValidatePolicyConfig validates the policy configuration
	ValidatePolicyConfig(config *PolicyFile) error
}

// Loader handles loading configuration files
type Loader struct{}

// Ensure Loader implements ConfigLoader
var _ ConfigLoader = (*Loader)(nil)

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadPolicyConfig loads the policy configuration from a YAML file
func (l *Loader) LoadPolicyConfig(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy config: %w", err)
	}

	var config PolicyFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse policy config: %w", err)
	}

	return &config, nil
}

// ValidatePolicyConfig validates the policy configuration
func (l *Loader) ValidatePolicyConfig(config *PolicyFile) error {
	if len(config.Policies) == 0 {
		return fmt.Errorf("no policies defined in policy config")
	}

	for id, policy := range config.Policies {
		if policy.Name == "" {
			return fmt.Errorf("policy %s: name is required", id)
		}
		if policy.Type == "" {
			return fmt.Errorf("policy %s: type is required", id)
		}
		if policy.Type != "opa" {
			return fmt.Errorf("policy %s: unsupported type %s (only 'opa' is supported)", id, policy.Type)
		}
		if policy.FilePath == "" {
			return fmt.Errorf("policy %s: filePath is required", id)
		}
		if filepath.Ext(policy.FilePath) != ".rego" || strings.HasSuffix(policy.FilePath, "_test.rego") {
			return fmt.Errorf("policy %s: filePath %s must be a .rego module, not a test file", id, policy.FilePath)
		}
		// policies resolve relative to the policies directory
		if filepath.IsAbs(policy.FilePath) || !filepath.IsLocal(policy.FilePath) {
			return fmt.Errorf("policy %s: filePath %s must stay inside the policies directory", id, policy.FilePath)
		}

		// an override keyword matches any note containing it, a blank one would match every note
		if kw := policy.Enforcement.Override.Keyword; kw != "" && strings.TrimSpace(kw) == "" {
			return fmt.Errorf("policy %s: override keyword cannot be blank", id)
		}
		if policy.Enforcement.Override.Keyword != "" && policy.Enforcement.InEffectAfter == nil {
			return fmt.Errorf("policy %s: override keyword set but the policy is never in effect", id)
		}

		// Validate enforcement dates are in order if set
		if policy.Enforcement.InEffectAfter != nil && policy.Enforcement.IsWarningAfter != nil {
			if policy.Enforcement.IsWarningAfter.Before(*policy.Enforcement.InEffectAfter) {
				return fmt.Errorf("policy %s: isWarningAfter cannot be before inEffectAfter", id)
			}
		}
		if policy.Enforcement.IsWarningAfter != nil && policy.Enforcement.IsBlockingAfter != nil {
			if policy.Enforcement.IsBlockingAfter.Before(*policy.Enforcement.IsWarningAfter) {
				return fmt.Errorf("policy %s: isBlockingAfter cannot be before isWarningAfter", id)
			}
		}
	}

	return nil
}
