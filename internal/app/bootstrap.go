package app

import (
	"errors"
	"log/slog"

	"equity_sim/internal/domain"
	"equity_sim/internal/engine"
	"equity_sim/internal/gateway"
	"equity_sim/internal/infra"
	"equity_sim/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Journal *storage.Journal
	Engine  *engine.Engine
	Gateway *gateway.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, journal,
// engine, gateway wiring).
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Equity Sim...")

	// 1. Load Config (fall back to the built-in demo set)
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, domain.ErrConfigNotFound) {
			return err
		}
		slog.Warn("config file not found, using built-in demo configuration",
			slog.String("path", configPath))
		cfg = infra.DefaultConfig()
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize trade journal (audit sink for exports)
	journal, err := storage.NewJournal(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ Trade journal initialized")

	// 4. Build engine from the static tables
	b.Engine = engine.New(cfg.Instruments, cfg.Sessions, paramsFromConfig(cfg.Engine))
	b.Engine.OnTrade(func(t domain.Trade) {
		if err := b.Journal.Append(t); err != nil {
			slog.Error("failed to journal trade", slog.String("id", t.ID), slog.Any("error", err))
		}
	})
	slog.Info("✅ Engine built",
		slog.Int("instruments", len(cfg.Instruments)),
		slog.Int("sessions", len(cfg.Sessions)),
	)

	// 5. Gateway pushes post-tick snapshots to the demo UI
	b.Gateway = gateway.New(b.Engine, cfg.Gateway.Addr)
	b.Engine.OnTick(b.Gateway.Broadcast)

	return nil
}

// paramsFromConfig maps the config tunables onto engine parameters.
func paramsFromConfig(t infra.Tunables) engine.Params {
	return engine.Params{
		TickInterval:     t.TickInterval(),
		DepthFactor:      t.DepthFactor,
		ImpactClamp:      t.ImpactClamp,
		FlowDivisor:      t.FlowDivisor,
		MaxFlowPct:       t.MaxFlowPct,
		HalfLifeSec:      t.HalfLifeSec,
		DriftWindowSec:   t.DriftWindowSec,
		NoiseRangePct:    t.NoiseRangePct,
		MeanRevThreshold: t.MeanRevThreshold,
		MeanRevFactor:    t.MeanRevFactor,
		RecentTradesCap:  t.RecentTradesCap,
		PriceHistoryCap:  t.PriceHistoryCap,
	}
}
