package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gh-nvat/mapdiff/src/internal/runner"
	"github.com/gh-nvat/mapdiff/src/pkg/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes
const (
	exitError   = 1
	exitBlocked = 2
)

type rootOptions struct {
	configPath string
	v          *viper.Viper
	settings   *config.Settings

	// flag name -> settings key, per command
	bindings map[*cobra.Command]map[string]string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var blocked *runner.BlockedError
		if errors.As(err, &blocked) {
			os.Exit(exitBlocked)
		}
		os.Exit(exitError)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{
		v:        config.NewViper(),
		bindings: map[*cobra.Command]map[string]string{},
	}

	cmd := &cobra.Command{
		Use:   "mapdiff",
		Short: "Difficulty diff tool for rhythm game maps",
		Long: `mapdiff compares one difficulty of two versions of a map and reports every
added, removed and modified object, either once from the command line or as an HTTP service.`,
		Version:       fmt.Sprintf("%s (built: %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a settings file (default: ./mapdiff.yaml if present)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	_ = opts.v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = opts.v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(
		newCompareCmd(opts),
		newServeCmd(opts),
		newPoliciesCmd(opts),
	)

	return cmd
}

// load binds the running command's flags, reads settings and configures logging
func (o *rootOptions) load(cmd *cobra.Command) error {
	for flag, key := range o.bindings[cmd] {
		if err := o.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	s, err := config.LoadSettings(o.v, o.configPath, ".")
	if err != nil {
		return err
	}
	o.settings = s

	level, err := log.ParseLevel(s.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if s.Logging.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// bindFlags records which settings keys a command's flags override.
// Several commands share keys, so binding happens once the command is known.
func (o *rootOptions) bindFlags(cmd *cobra.Command, keys map[string]string) {
	o.bindings[cmd] = keys
}
