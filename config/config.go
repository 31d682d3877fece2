// Package config loads regionlift settings from defaults, an optional config
// file and REGIONLIFT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

// EnvPrefix is the prefix of environment overrides, e.g. REGIONLIFT_RUN_FUEL.
const EnvPrefix = "REGIONLIFT"

// Defaults
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
	DefaultFormat    = "text"
	DefaultFuel      = 10_000
)

// Config represents the main configuration structure
type Config struct {
	Log    LogConfig    `json:"log" mapstructure:"log" yaml:"log"`
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`
	Lift   LiftConfig   `json:"lift" mapstructure:"lift" yaml:"lift"`
	Run    RunConfig    `json:"run" mapstructure:"run" yaml:"run"`
	Batch  BatchConfig  `json:"batch" mapstructure:"batch" yaml:"batch"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" mapstructure:"level" yaml:"level"`
	// Format is console or json.
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// LiftConfig maps onto region.Config.
type LiftConfig struct {
	Validate  bool `json:"validate" mapstructure:"validate" yaml:"validate"`
	MaxLevels int  `json:"maxLevels" mapstructure:"max_levels" yaml:"max_levels"`
}

// OutputConfig controls tree export.
type OutputConfig struct {
	// Format is text, yaml or cbor.
	Format  string `json:"format" mapstructure:"format" yaml:"format"`
	Aliases bool   `json:"aliases" mapstructure:"aliases" yaml:"aliases"`
}

// RunConfig controls wasm execution.
type RunConfig struct {
	Fuel int   `json:"fuel" mapstructure:"fuel" yaml:"fuel"`
	Seed int64 `json:"seed" mapstructure:"seed" yaml:"seed"`
}

// BatchConfig controls concurrent lifting. Zero workers means one per CPU.
type BatchConfig struct {
	Workers int `json:"workers" mapstructure:"workers" yaml:"workers"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Lift:   LiftConfig{Validate: true},
		Output: OutputConfig{Format: DefaultFormat},
		Run:    RunConfig{Fuel: DefaultFuel, Seed: 1},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("lift.validate", d.Lift.Validate)
	v.SetDefault("lift.max_levels", d.Lift.MaxLevels)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.aliases", d.Output.Aliases)
	v.SetDefault("run.fuel", d.Run.Fuel)
	v.SetDefault("run.seed", d.Run.Seed)
	v.SetDefault("batch.workers", d.Batch.Workers)
}

// Load reads configuration. An empty path falls back to a regionlift.yaml,
// .yml, .toml or .json file in the working directory, if one exists.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = discover(".")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err,
				fmt.Sprintf("failed to read config file %s", path))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func discover(dir string) string {
	for _, name := range []string{"regionlift.yaml", "regionlift.yml", "regionlift.toml", "regionlift.json"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Path("log", "level").Value(c.Log.Level).Detail("unknown log level").Build()
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Path("log", "format").Value(c.Log.Format).Detail("must be console or json").Build()
	}
	switch strings.ToLower(c.Output.Format) {
	case "text", "yaml", "cbor":
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Path("output", "format").Value(c.Output.Format).Detail("must be text, yaml or cbor").Build()
	}
	if c.Lift.MaxLevels < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Path("lift", "max_levels").Value(c.Lift.MaxLevels).Detail("must not be negative").Build()
	}
	if c.Run.Fuel <= 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Path("run", "fuel").Value(c.Run.Fuel).Detail("must be positive").Build()
	}
	if c.Batch.Workers < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Path("batch", "workers").Value(c.Batch.Workers).Detail("must not be negative").Build()
	}
	return nil
}

// RegionConfig returns the lifting options with logger attached.
func (c *Config) RegionConfig(logger *zap.Logger) region.Config {
	return region.Config{
		Logger:         logger,
		MaxLevels:      c.Lift.MaxLevels,
		SkipValidation: !c.Lift.Validate,
	}
}

// NewLogger builds a zap logger writing to stderr.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidArgument, err, "log level")
	}

	var zc zap.Config
	if c.Log.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	return zc.Build()
}
