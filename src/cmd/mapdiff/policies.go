package main

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gh-nvat/mapdiff/src/pkg/config"
	"github.com/gh-nvat/mapdiff/src/pkg/policy"
)

func newPoliciesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Manage change policies",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the policy configuration and policy files",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.settings.Policies.Path
			if path == "" {
				return fmt.Errorf("--policies-path is required")
			}

			cfg, err := policy.NewEvaluator().LoadAndValidate(filepath.Join(path, config.PolicyConfigFileName), path)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(cfg.Policies))
			for id := range cfg.Policies {
				ids = append(ids, id)
			}
			slices.Sort(ids)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Loaded %d policies\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  - %s: %s\n", id, cfg.Policies[id].Name)
			}
			return nil
		},
	}
	validate.Flags().String("policies-path", "", "Path to policies directory (contains policy-config.yaml)")
	root.bindFlags(validate, map[string]string{"policies-path": "policies.path"})

	cmd.AddCommand(validate)
	return cmd
}
