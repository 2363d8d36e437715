// Package config provides configuration management for the bond valuation CLI.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"bondval/internal/bond"
	apperrors "bondval/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. BONDVAL_CURVE_SAMPLES.
const EnvPrefix = "BONDVAL"

// Config holds all application configuration.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults" json:"defaults"`
	Curve    CurveConfig    `mapstructure:"curve" json:"curve"`
	Store    StoreConfig    `mapstructure:"store" json:"store"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-" json:"file,omitempty"`
}

// DefaultsConfig holds the term sheet used when a flag is not given.
type DefaultsConfig struct {
	bond.TermSheet `mapstructure:",squash"`
	Kind           string `mapstructure:"kind" json:"kind"`
}

// CurveConfig holds price/yield curve settings.
type CurveConfig struct {
	Low     float64 `mapstructure:"low" json:"low"`
	High    float64 `mapstructure:"high" json:"high"`
	Samples int     `mapstructure:"samples" json:"samples"`
	Workers int     `mapstructure:"workers" json:"workers"`
}

// StoreConfig holds valuation history settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	File       bool   `mapstructure:"file" json:"file"`
	FilePath   string `mapstructure:"file_path" json:"file_path"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
}

// MetricsConfig holds the Prometheus textfile export settings.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" json:"textfile"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/bondval"
	}
	return filepath.Join(home, ".config", "bondval")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a commented template and defaults are used.
func Load(configDir string, logger zerolog.Logger) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := newViper(configDir)

	file := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("reading config.toml: %v", err))
		}
		if err := createTemplateConfig(configDir, "config"); err != nil {
			logger.Debug().Err(err).Str("dir", configDir).Msg("Could not write config template")
		}
	} else {
		file = v.ConfigFileUsed()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("decoding config: %v", err))
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, configDir)
	return v
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("defaults.face_value", 100.0)
	v.SetDefault("defaults.coupon_rate", 0.05)
	v.SetDefault("defaults.yield_rate", 0.1007)
	v.SetDefault("defaults.spread", 0.0)
	v.SetDefault("defaults.coupon_period_days", 182)
	v.SetDefault("defaults.maturity_days", 366)
	v.SetDefault("defaults.days_per_year", 360)
	v.SetDefault("defaults.kind", string(bond.FixedCoupon))

	v.SetDefault("curve.low", bond.DefaultCurveLow)
	v.SetDefault("curve.high", bond.DefaultCurveHigh)
	v.SetDefault("curve.samples", bond.DefaultCurveSamples)
	v.SetDefault("curve.workers", 4)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(configDir, "bondval.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "bondval.log"))
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("metrics.textfile", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := bond.ParseKind(c.Defaults.Kind); err != nil {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("defaults.kind: %v", err))
	}
	if err := c.Defaults.TermSheet.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("defaults: %v", err))
	}

	if c.Curve.Samples <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "curve.samples must be positive")
	}
	if math.IsNaN(c.Curve.Low) || math.IsNaN(c.Curve.High) || math.IsInf(c.Curve.Low, 0) || math.IsInf(c.Curve.High, 0) {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "curve bounds must be finite")
	}
	if c.Curve.Low > c.Curve.High {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("curve.low (%g) must not exceed curve.high (%g)", c.Curve.Low, c.Curve.High))
	}
	if c.Curve.Workers < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "curve.workers must be non-negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("invalid logging.level: %s (must be debug, info, warn or error)", c.Logging.Level))
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "store.path is required when the store is enabled")
	}

	return nil
}

// DefaultKind returns the parsed default bond kind.
func (c *Config) DefaultKind() bond.Kind {
	kind, err := bond.ParseKind(c.Defaults.Kind)
	if err != nil {
		return bond.FixedCoupon
	}
	return kind
}
