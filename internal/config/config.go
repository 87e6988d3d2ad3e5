// Package config loads and validates run configuration from file,
// environment, and defaults.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sam0per/belgian-brewery/internal/ingest"
	"github.com/sam0per/belgian-brewery/internal/score"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig     `yaml:"store" mapstructure:"store"`
	Sources []ingest.Source `yaml:"sources" mapstructure:"sources"`
	Match   MatchConfig     `yaml:"match" mapstructure:"match"`
	Geocode GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Score   ScoreConfig     `yaml:"score" mapstructure:"score"`
	Metrics MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the warehouse backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MatchConfig configures entity matching.
type MatchConfig struct {
	Threshold       float64  `yaml:"threshold" mapstructure:"threshold"`
	AmbiguityMargin float64  `yaml:"ambiguity_margin" mapstructure:"ambiguity_margin"`
	SourcePriority  []string `yaml:"source_priority" mapstructure:"source_priority"`
}

// GeocodeConfig configures the geocode cascade and the external
// street-level resolver.
type GeocodeConfig struct {
	RequiredTier string  `yaml:"required_tier" mapstructure:"required_tier"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns the street resolver timeout as a duration.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// ScoreConfig overrides the scoring weights per run.
type ScoreConfig struct {
	Weights map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// MetricsConfig configures the optional metrics listener; an empty
// address disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional), BREWERY_*
// environment variables, and defaults, then validates it.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BREWERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "brewery.db")
	v.SetDefault("match.threshold", 0.85)
	v.SetDefault("match.ambiguity_margin", 0.03)
	v.SetDefault("geocode.required_tier", "municipality")
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.rate_per_sec", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would start a run with silently
// wrong semantics.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return eris.Errorf("config: match threshold %g outside (0,1]", c.Match.Threshold)
	}
	if c.Match.AmbiguityMargin < 0 {
		return eris.Errorf("config: negative ambiguity margin %g", c.Match.AmbiguityMargin)
	}

	switch c.Geocode.RequiredTier {
	case "municipality", "street":
	default:
		return eris.Errorf("config: unknown geocode tier %q", c.Geocode.RequiredTier)
	}

	// Weight validation happens at load so a bad set fails before any
	// stage starts.
	if _, err := score.NewWeightsFromMap(c.Score.Weights); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" || src.Path == "" {
			return eris.Errorf("config: source missing id or path: %+v", src)
		}
		if seen[src.ID] {
			return eris.Errorf("config: duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
	}
	return nil
}

// ScoreWeights returns the validated score weights for this run.
func (c *Config) ScoreWeights() (score.Weights, error) {
	return score.NewWeightsFromMap(c.Score.Weights)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
