package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/aegis/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Ensemble  EnsembleConfig  `mapstructure:"ensemble"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Gate      GateConfig      `mapstructure:"gate"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Intervals IntervalsConfig `mapstructure:"intervals"`
	Export    ExportConfig    `mapstructure:"export"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Watchlist []string        `mapstructure:"watchlist"`
}

// EnsembleConfig holds fusion settings.
type EnsembleConfig struct {
	Method        string                 `mapstructure:"method"`
	TiePrecedence []string               `mapstructure:"tie_precedence"`
	Models        map[string]ModelConfig `mapstructure:"models"`
}

// ModelConfig describes one prediction model in the ensemble.
type ModelConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Type    string         `mapstructure:"type"` // "momentum" or "llm"
	Weight  float64        `mapstructure:"weight"`
	Params  map[string]any `mapstructure:"params"`
}

// ResolverConfig holds conflict arbitration settings.
type ResolverConfig struct {
	ClassWeights map[string]float64 `mapstructure:"class_weights"`
}

// GateConfig holds admission gate settings.
type GateConfig struct {
	MaxPositions         int           `mapstructure:"max_positions"`
	PositionSizeFraction float64       `mapstructure:"position_size_fraction"`
	MinTradeInterval     time.Duration `mapstructure:"min_trade_interval"`
	MinConfidence        float64       `mapstructure:"min_confidence"`
}

// BrokerConfig holds order execution settings.
type BrokerConfig struct {
	Mode           string        `mapstructure:"mode"` // "paper" or "delegated"
	CommissionRate float64       `mapstructure:"commission_rate"`
	SubmitTimeout  time.Duration `mapstructure:"submit_timeout"`
}

// PortfolioConfig holds ledger settings.
type PortfolioConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	VaRZScore      float64 `mapstructure:"var_z_score"`
}

// IntervalsConfig holds the periods of the engine's cycles.
type IntervalsConfig struct {
	Market    time.Duration `mapstructure:"market"`
	Analysis  time.Duration `mapstructure:"analysis"`
	Portfolio time.Duration `mapstructure:"portfolio"`
	Export    time.Duration `mapstructure:"export"`
}

// ExportConfig holds flat-record export settings.
type ExportConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"`   // "localfs" or "s3"
	Path    string   `mapstructure:"path"`   // For localfs
	Retain  int      `mapstructure:"retain"` // Files kept per prefix; 0 disables pruning
	S3      S3Config `mapstructure:"s3"`     // For S3
}

// S3Config holds S3 export backend settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LLMConfig holds LLM provider settings for LLM-backed models.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // For DeepSeek-compatible endpoints
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	// Unset keys keep their default values.
	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Ensemble: EnsembleConfig{
			Method:        "weighted_average",
			TiePrecedence: []string{"SELL", "BUY", "HOLD"},
		},
		Resolver: ResolverConfig{
			ClassWeights: map[string]float64{
				"BUY":  1.0,
				"SELL": 1.0,
				"HOLD": 0.5,
			},
		},
		Gate: GateConfig{
			MaxPositions:         10,
			PositionSizeFraction: 0.1,
			MinTradeInterval:     4 * time.Hour,
			MinConfidence:        0.6,
		},
		Broker: BrokerConfig{
			Mode:           "paper",
			CommissionRate: 0.0005,
			SubmitTimeout:  10 * time.Second,
		},
		Portfolio: PortfolioConfig{
			InitialCapital: 100000,
			RiskFreeRate:   0,
			VaRZScore:      1.645,
		},
		Intervals: IntervalsConfig{
			Market:    1 * time.Minute,
			Analysis:  5 * time.Minute,
			Portfolio: 30 * time.Second,
			Export:    15 * time.Minute,
		},
		Export: ExportConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "./export",
			Retain:  96,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Ensemble.Method {
	case "weighted_average", "majority_vote", "confidence_weighted":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown ensemble method %q", c.Ensemble.Method))
	}

	for name, m := range c.Ensemble.Models {
		if m.Weight < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("model %s weight cannot be negative, got %f", name, m.Weight))
		}
	}

	if c.Gate.MinConfidence < 0 || c.Gate.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Gate.MinConfidence))
	}
	if c.Gate.PositionSizeFraction <= 0 || c.Gate.PositionSizeFraction > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("position_size_fraction must be in (0,1], got %f", c.Gate.PositionSizeFraction))
	}
	if c.Gate.MaxPositions < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_positions must be at least 1, got %d", c.Gate.MaxPositions))
	}
	if c.Gate.MinTradeInterval < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_trade_interval cannot be negative, got %s", c.Gate.MinTradeInterval))
	}

	switch c.Broker.Mode {
	case "paper", "delegated":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown broker mode %q", c.Broker.Mode))
	}
	if c.Broker.CommissionRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_rate cannot be negative, got %f", c.Broker.CommissionRate))
	}

	if c.Portfolio.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Portfolio.InitialCapital))
	}

	// The cycle tickers panic on non-positive periods.
	if c.Intervals.Market <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("intervals.market must be positive, got %s", c.Intervals.Market))
	}
	if c.Intervals.Analysis <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("intervals.analysis must be positive, got %s", c.Intervals.Analysis))
	}
	if c.Intervals.Portfolio <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("intervals.portfolio must be positive, got %s", c.Intervals.Portfolio))
	}
	if c.Export.Enabled && c.Intervals.Export <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("intervals.export must be positive, got %s", c.Intervals.Export))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		}
	}

	if c.Export.Enabled {
		switch c.Export.Type {
		case "localfs":
			if c.Export.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("export path required for localfs"))
			}
		case "s3":
			if c.Export.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required for s3 export"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown export type %q", c.Export.Type))
		}
	}

	return nil
}
