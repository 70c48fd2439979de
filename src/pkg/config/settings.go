package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding settings
const EnvPrefix = "MAPDIFF"

// SettingsFileName is the settings file looked up in the working directory
const SettingsFileName = "mapdiff"

// Settings holds the runtime settings shared by the CLI and the server
type Settings struct {
	Compare  CompareSettings `mapstructure:"compare"`
	Fetch    FetchSettings   `mapstructure:"fetch"`
	Server   ServerSettings  `mapstructure:"server"`
	Policies PolicySettings  `mapstructure:"policies"`
	Logging  LoggingSettings `mapstructure:"logging"`
	Tracing  TracingSettings `mapstructure:"tracing"`
	Output   OutputSettings  `mapstructure:"output"`
}

// CompareSettings selects the difficulty compared by default
type CompareSettings struct {
	Difficulty     string `mapstructure:"difficulty"`
	Characteristic string `mapstructure:"characteristic"`
	IncludeLights  bool   `mapstructure:"includeLights"`
}

// FetchSettings bounds map downloads
type FetchSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
	MaxSize int64         `mapstructure:"maxSize"`
}

// ServerSettings configures the HTTP endpoint
type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

// PolicySettings points to the change-policy directory, empty disables evaluation
type PolicySettings struct {
	Path  string   `mapstructure:"path"`
	Notes []string `mapstructure:"notes"`
}

// LoggingSettings configures logrus
type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// TracingSettings toggles the performance report
type TracingSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// OutputSettings configures where reports are written
type OutputSettings struct {
	Dir          string `mapstructure:"dir"`
	Format       string `mapstructure:"format"` // "text", "json" or "markdown"
	TemplatesDir string `mapstructure:"templatesDir"`
	Color        bool   `mapstructure:"color"`
}

// SetDefaults registers every setting with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("compare.difficulty", "ExpertPlus")
	v.SetDefault("compare.characteristic", "Standard")
	v.SetDefault("compare.includeLights", true)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.maxSize", int64(64<<20))
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("policies.path", "")
	v.SetDefault("policies.notes", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("output.dir", "")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.templatesDir", "")
	v.SetDefault("output.color", false)
}

// NewViper returns a viper instance with defaults and environment overrides,
// e.g. MAPDIFF_SERVER_ADDR overrides server.addr
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings reads the settings file into v and unmarshals the result.
// An explicit path must exist, otherwise mapdiff.yaml is looked up in dir and
// a missing file falls back to defaults.
func LoadSettings(v *viper.Viper, path, dir string) (*Settings, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(SettingsFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings that cannot be defaulted
func (s *Settings) Validate() error {
	if s.Compare.Difficulty == "" {
		return fmt.Errorf("compare.difficulty is required")
	}
	if s.Compare.Characteristic == "" {
		return fmt.Errorf("compare.characteristic is required")
	}
	if s.Fetch.MaxSize <= 0 {
		return fmt.Errorf("fetch.maxSize must be positive")
	}
	switch s.Output.Format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unsupported output.format %q", s.Output.Format)
	}
	switch s.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported logging.format %q", s.Logging.Format)
	}
	return nil
}
