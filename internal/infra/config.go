package infra

import (
	"fmt"
	"os"
	"time"

	"equity_sim/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Tunables is the configuration surface of the numeric engine. Every knob
// the price model exposes is injectable here; zero values are replaced by
// the defaults below at load time.
type Tunables struct {
	TickIntervalMS   int     `yaml:"tick_interval_ms"`
	DepthFactor      float64 `yaml:"depth_factor"`
	ImpactClamp      float64 `yaml:"impact_clamp"`
	FlowDivisor      float64 `yaml:"flow_divisor"`
	MaxFlowPct       float64 `yaml:"max_flow_pct"`
	HalfLifeSec      float64 `yaml:"half_life_sec"`
	DriftWindowSec   float64 `yaml:"drift_window_sec"`
	NoiseRangePct    float64 `yaml:"noise_range_pct"`
	MeanRevThreshold float64 `yaml:"mean_reversion_threshold"`
	MeanRevFactor    float64 `yaml:"mean_reversion_factor"`
	RecentTradesCap  int     `yaml:"recent_trades_cap"`
	PriceHistoryCap  int     `yaml:"price_history_cap"`
}

// TickInterval returns the tick period as a duration.
func (t Tunables) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalMS) * time.Millisecond
}

// Config holds the entire application configuration.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine Tunables `yaml:"engine"`

	Instruments map[string]domain.InstrumentConfig `yaml:"instruments"`
	Sessions    map[string]domain.SessionSpec      `yaml:"sessions"`

	Gateway struct {
		Addr string `yaml:"addr"`
	} `yaml:"gateway"`

	Storage struct {
		Path string `yaml:"path"` // empty: per-user config dir
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultTunables returns the stock engine parameters.
func DefaultTunables() Tunables {
	return Tunables{
		TickIntervalMS:   1000,
		DepthFactor:      0.02,
		ImpactClamp:      0.025,
		FlowDivisor:      50,
		MaxFlowPct:       0.002,
		HalfLifeSec:      1200,
		DriftWindowSec:   3600,
		NoiseRangePct:    0.0002,
		MeanRevThreshold: -0.02,
		MeanRevFactor:    0.4,
		RecentTradesCap:  10,
		PriceHistoryCap:  100,
	}
}

// DefaultConfig returns a runnable demo configuration: a handful of
// large-cap equities and two news sessions covering them.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "equity-sim"
	cfg.App.Version = "dev"
	cfg.Engine = DefaultTunables()
	cfg.Gateway.Addr = ":8085"
	cfg.Logging.Level = "info"

	cfg.Instruments = map[string]domain.InstrumentConfig{
		"TCS":      {StartPrice: decimal.NewFromInt(4100), DailyVolume: 1_800_000, ImpactSensitivity: 1.15},
		"INFY":     {StartPrice: decimal.NewFromInt(1520), DailyVolume: 5_400_000, ImpactSensitivity: 1.05},
		"RELIANCE": {StartPrice: decimal.NewFromInt(2950), DailyVolume: 6_100_000, ImpactSensitivity: 0.95},
		"HDFCBANK": {StartPrice: decimal.NewFromInt(1680), DailyVolume: 9_700_000, ImpactSensitivity: 0.90},
		"ITC":      {StartPrice: decimal.NewFromInt(445), DailyVolume: 12_500_000, ImpactSensitivity: 0.85},
	}

	cfg.Sessions = map[string]domain.SessionSpec{
		"q4-earnings": {
			Weight: 0.8,
			Sentiment: map[string]domain.SentimentLabel{
				"TCS":      domain.SentimentPositive,
				"INFY":     domain.SentimentPositiveLean,
				"RELIANCE": domain.SentimentMixed,
				"HDFCBANK": domain.SentimentNegativeLean,
				"ITC":      domain.SentimentMixed,
			},
			DriftTargets: map[domain.SentimentLabel]float64{
				domain.SentimentPositive:     0.016,
				domain.SentimentPositiveLean: 0.008,
				domain.SentimentMixed:        0.0,
				domain.SentimentNegativeLean: -0.011,
				domain.SentimentNegative:     -0.022,
			},
		},
		"global-selloff": {
			Weight: 0.6,
			Sentiment: map[string]domain.SentimentLabel{
				"TCS":      domain.SentimentNegativeLean,
				"INFY":     domain.SentimentNegative,
				"RELIANCE": domain.SentimentNegativeLean,
				"HDFCBANK": domain.SentimentNegative,
				"ITC":      domain.SentimentMixed,
			},
			DriftTargets: map[domain.SentimentLabel]float64{
				domain.SentimentPositive:     0.012,
				domain.SentimentPositiveLean: 0.006,
				domain.SentimentMixed:        -0.002,
				domain.SentimentNegativeLean: -0.013,
				domain.SentimentNegative:     -0.021,
			},
		},
	}

	return cfg
}

// LoadConfig reads and parses the configuration file, fills defaults,
// applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero-valued tunables and propagates map keys into the
// Symbol/ID fields that YAML cannot see.
func (c *Config) applyDefaults() {
	def := DefaultTunables()
	if c.Engine.TickIntervalMS == 0 {
		c.Engine.TickIntervalMS = def.TickIntervalMS
	}
	if c.Engine.DepthFactor == 0 {
		c.Engine.DepthFactor = def.DepthFactor
	}
	if c.Engine.ImpactClamp == 0 {
		c.Engine.ImpactClamp = def.ImpactClamp
	}
	if c.Engine.FlowDivisor == 0 {
		c.Engine.FlowDivisor = def.FlowDivisor
	}
	if c.Engine.MaxFlowPct == 0 {
		c.Engine.MaxFlowPct = def.MaxFlowPct
	}
	if c.Engine.HalfLifeSec == 0 {
		c.Engine.HalfLifeSec = def.HalfLifeSec
	}
	if c.Engine.DriftWindowSec == 0 {
		c.Engine.DriftWindowSec = def.DriftWindowSec
	}
	if c.Engine.NoiseRangePct == 0 {
		c.Engine.NoiseRangePct = def.NoiseRangePct
	}
	if c.Engine.MeanRevThreshold == 0 {
		c.Engine.MeanRevThreshold = def.MeanRevThreshold
	}
	if c.Engine.MeanRevFactor == 0 {
		c.Engine.MeanRevFactor = def.MeanRevFactor
	}
	if c.Engine.RecentTradesCap == 0 {
		c.Engine.RecentTradesCap = def.RecentTradesCap
	}
	if c.Engine.PriceHistoryCap == 0 {
		c.Engine.PriceHistoryCap = def.PriceHistoryCap
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = ":8085"
	}

	for sym, ic := range c.Instruments {
		ic.Symbol = sym
		c.Instruments[sym] = ic
	}
	for id, ss := range c.Sessions {
		ss.ID = id
		c.Sessions[id] = ss
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for sym, ic := range c.Instruments {
		if !ic.StartPrice.IsPositive() {
			return &domain.ConfigError{Field: sym + ".start_price", Err: fmt.Errorf("must be positive, got %s", ic.StartPrice)}
		}
		if ic.DailyVolume <= 0 {
			return &domain.ConfigError{Field: sym + ".daily_volume", Err: fmt.Errorf("must be positive, got %d", ic.DailyVolume)}
		}
		if ic.ImpactSensitivity <= 0 {
			return &domain.ConfigError{Field: sym + ".impact_sensitivity", Err: fmt.Errorf("must be positive, got %v", ic.ImpactSensitivity)}
		}
	}

	for _, ss := range c.Sessions {
		if err := ss.Validate(); err != nil {
			return err
		}
	}

	e := c.Engine
	if e.TickIntervalMS <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if e.DepthFactor <= 0 || e.ImpactClamp <= 0 || e.FlowDivisor <= 0 ||
		e.MaxFlowPct <= 0 || e.HalfLifeSec <= 0 || e.DriftWindowSec <= 0 {
		return fmt.Errorf("engine tunables must be positive")
	}
	if e.NoiseRangePct < 0 {
		return fmt.Errorf("noise range must not be negative")
	}
	if e.MeanRevThreshold >= 0 {
		return fmt.Errorf("mean reversion threshold must be negative")
	}
	if e.MeanRevFactor < 0 || e.MeanRevFactor > 1 {
		return fmt.Errorf("mean reversion factor must be within [0,1]")
	}
	if e.RecentTradesCap <= 0 || e.PriceHistoryCap <= 0 {
		return fmt.Errorf("history capacities must be positive")
	}

	return nil
}

// overrideWithEnv overrides selected settings from environment variables.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("SIM_GATEWAY_ADDR"); addr != "" {
		cfg.Gateway.Addr = addr
	}
	if path := os.Getenv("SIM_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("SIM_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
