// Package config loads slicec-cs settings with Viper.
//
// Precedence (lowest to highest): defaults < config file < SLICEC_CS_* env vars.
// The config file is either given explicitly or found as slicec-cs.yaml,
// slicec-cs.yml or slicec-cs.toml in the working directory.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SLICEC_CS_LEDGER_PATH.
const EnvPrefix = "SLICEC_CS"

// Config holds every setting the CLI reads.
type Config struct {
	OutputDir string         `mapstructure:"output_dir"`
	Workers   int            `mapstructure:"workers"`
	Ledger    LedgerConfig   `mapstructure:"ledger"`
	Log       LogConfig      `mapstructure:"log"`
	Generate  GenerateConfig `mapstructure:"generate"`
}

// LedgerConfig configures the generation ledger.
type LedgerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// GenerateConfig configures the code generators.
type GenerateConfig struct {
	// ToolVersion is stamped into the preamble of generated files.
	// Empty means the built-in version.
	ToolVersion string `mapstructure:"tool_version"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "generated")
	v.SetDefault("workers", 0) // 0 = one per CPU
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", ".slicec-cs/ledger.db")
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("generate.tool_version", "")
}

// New builds a Viper instance with defaults, environment binding and the
// config file. An explicit configFile must exist; the implicit lookup in the
// working directory is optional.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configFile)
		}
		return v, nil
	}

	v.SetConfigName("slicec-cs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}
	return v, nil
}

// Load reads the configuration.
func Load(configFile string) (*Config, error) {
	v, err := New(configFile)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper loads and validates configuration from a provided Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.WithHint(errors.Newf("workers must be >= 0, got %d", c.Workers), "use 0 for one worker per CPU")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return errors.New("ledger.path must not be empty when the ledger is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
