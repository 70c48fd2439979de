package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/gh-nvat/mapdiff/src/internal/runner"
	"github.com/gh-nvat/mapdiff/src/pkg/compare"
	"github.com/gh-nvat/mapdiff/src/pkg/policy"
	"github.com/gh-nvat/mapdiff/src/pkg/source"
	"github.com/gh-nvat/mapdiff/src/pkg/template"
	"github.com/gh-nvat/mapdiff/src/pkg/trace"
)

type compareOptions struct {
	oldRef string
	newRef string
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare one difficulty of two map versions",
		Long: `Compare loads the old and the new version of a map (a folder, a zip file or an
http(s) URL to a zip), diffs the selected difficulty and prints the changes.
Change policies are evaluated when a policies path is set; a blocking failure exits with code 2.`,
		Example: `  mapdiff compare --old ./maps/v1 --new ./maps/v2
  mapdiff compare --old v1.zip --new https://example.com/v2.zip --difficulty Expert --lights=false
  mapdiff compare --old v1.zip --new v2.zip --format markdown --policies-path ./policies`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.oldRef, "old", "", "Old map version (required)")
	cmd.Flags().StringVar(&opts.newRef, "new", "", "New map version (required)")
	cmd.Flags().String("difficulty", compare.DefaultDifficulty, "Difficulty to compare")
	cmd.Flags().String("characteristic", compare.DefaultCharacteristic, "Characteristic to compare")
	cmd.Flags().Bool("lights", true, "Include lighting events")
	cmd.Flags().String("format", runner.FormatText, "Output format: text, json or markdown")
	cmd.Flags().String("output-dir", "", "Write report.json, report.txt and report.md to this directory")
	cmd.Flags().String("templates-path", "", "Directory with custom markdown templates, or a single template file")
	cmd.Flags().Bool("color", false, "Color the text report")
	cmd.Flags().String("policies-path", "", "Path to policies directory (contains policy-config.yaml)")
	cmd.Flags().StringSlice("note", nil, "Update note checked for policy override keywords (repeatable)")
	cmd.Flags().Bool("enable-tracing", false, "Write performance-report.json to the output directory")

	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")

	root.bindFlags(cmd, map[string]string{
		"difficulty":     "compare.difficulty",
		"characteristic": "compare.characteristic",
		"lights":         "compare.includeLights",
		"format":         "output.format",
		"output-dir":     "output.dir",
		"templates-path": "output.templatesDir",
		"color":          "output.color",
		"policies-path":  "policies.path",
		"note":           "policies.notes",
		"enable-tracing": "tracing.enabled",
	})

	return cmd
}

func runCompare(cmd *cobra.Command, root *rootOptions, opts *compareOptions) error {
	s := root.settings

	shutdown, err := trace.InitTracer("mapdiff", s.Tracing.Enabled, s.Output.Dir)
	if err != nil {
		return err
	}
	defer shutdown()

	fetcher := source.NewFetcher(&http.Client{}, source.Options{
		Timeout:    s.Fetch.Timeout,
		MaxSize:    s.Fetch.MaxSize,
		AllowLocal: true,
		UserAgent:  "mapdiff/" + Version,
	})

	r, err := runner.NewRunnerLocal(
		cmd.Context(),
		&runner.Options{
			OldRef:         opts.oldRef,
			NewRef:         opts.newRef,
			Difficulty:     s.Compare.Difficulty,
			Characteristic: s.Compare.Characteristic,
			IncludeLights:  s.Compare.IncludeLights,
			PoliciesPath:   s.Policies.Path,
			Notes:          s.Policies.Notes,
			TemplatesPath:  s.Output.TemplatesDir,
			OutputDir:      s.Output.Dir,
			Format:         s.Output.Format,
			Color:          s.Output.Color,
		},
		compare.NewService(fetcher),
		policy.NewEvaluator(),
		template.NewRenderer(),
	)
	if err != nil {
		return err
	}
	r.Stdout = cmd.OutOrStdout()

	if err := r.Initialize(); err != nil {
		return err
	}
	return r.Process()
}
