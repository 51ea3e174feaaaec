// Package engine implements the synthetic price engine: per-trade impact,
// session-driven drift with half-life decay, cumulative flow pressure and
// uniform noise, recomposed once per tick for every configured instrument.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"equity_sim/internal/domain"
	"equity_sim/internal/infra"
	"equity_sim/internal/session"
)

// Params is the numeric configuration surface of the engine.
type Params struct {
	TickInterval     time.Duration
	DepthFactor      float64 // share of daily notional available as depth
	ImpactClamp      float64 // max |impact| of a single trade
	FlowDivisor      float64
	MaxFlowPct       float64 // max |flow drift| per tick
	HalfLifeSec      float64 // session influence halves every half-life
	DriftWindowSec   float64 // daily target normalization window
	NoiseRangePct    float64
	MeanRevThreshold float64 // negative; change-from-open that arms the dampener
	MeanRevFactor    float64 // drift multiplier once armed
	RecentTradesCap  int
	PriceHistoryCap  int
}

// DefaultParams returns the stock engine parameters.
func DefaultParams() Params {
	return Params{
		TickInterval:     time.Second,
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

// Engine owns all simulation state: one instrumentState per configured
// symbol plus the session registry. It is safe for concurrent use; each
// instrument is guarded by its own mutex.
type Engine struct {
	params  Params
	specs   map[string]domain.SessionSpec
	states  map[string]*instrumentState
	symbols []string // sorted, for stable iteration

	sessions *session.Registry
	noise    NoiseSource
	now      func() time.Time

	// Boundary hooks: notify collaborators (UI gateway, journal) of
	// state changes. Both are invoked outside the per-instrument locks.
	onTick  func([]domain.InstrumentSnapshot)
	onTrade func(domain.Trade)

	runMu   sync.Mutex
	parent  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates an engine from the static instrument and session tables.
func New(instruments map[string]domain.InstrumentConfig, sessions map[string]domain.SessionSpec, params Params) *Engine {
	e := &Engine{
		params:   params,
		specs:    sessions,
		states:   make(map[string]*instrumentState, len(instruments)),
		sessions: session.NewRegistry(),
		noise:    NewRandNoise(0),
		now:      time.Now,
	}
	for sym, cfg := range instruments {
		cfg.Symbol = sym
		e.states[sym] = newInstrumentState(cfg, params.RecentTradesCap, params.PriceHistoryCap)
		e.symbols = append(e.symbols, sym)
	}
	sort.Strings(e.symbols)
	return e
}

// SetNoiseSource replaces the noise source. Call before Start.
func (e *Engine) SetNoiseSource(ns NoiseSource) {
	e.noise = ns
}

// OnTick registers a callback invoked after every tick with the post-tick
// snapshots of all instruments, sorted by symbol. Call before Start.
func (e *Engine) OnTick(fn func([]domain.InstrumentSnapshot)) {
	e.onTick = fn
}

// OnTrade registers a callback invoked after every applied trade. Call
// before Start.
func (e *Engine) OnTrade(fn func(domain.Trade)) {
	e.onTrade = fn
}

// ActivateSession marks a configured news session active. Idempotent: the
// first activation fixes the session's start time, later calls are no-ops.
func (e *Engine) ActivateSession(sessionID string) error {
	spec, ok := e.specs[sessionID]
	if !ok {
		return domain.ErrUnknownSession
	}

	if e.sessions.Activate(sessionID, e.now()) {
		infra.GlobalMetrics.SetActiveSessions(int32(e.sessions.Len()))
		slog.Info("session activated",
			slog.String("session", sessionID),
			slog.Float64("weight", spec.Weight),
		)
	}
	return nil
}

// ActiveSessions returns the ids of all active sessions, sorted.
func (e *Engine) ActiveSessions() []string {
	active := e.sessions.Active()
	out := make([]string, 0, len(active))
	for id := range active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the current read-only state of one instrument.
func (e *Engine) Snapshot(symbol string) (domain.InstrumentSnapshot, error) {
	st, ok := e.states[symbol]
	if !ok {
		return domain.InstrumentSnapshot{}, domain.NewTradeError("snapshot", symbol, domain.ErrUnknownInstrument)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(), nil
}

// Snapshots returns the current state of every instrument, sorted by symbol.
func (e *Engine) Snapshots() []domain.InstrumentSnapshot {
	out := make([]domain.InstrumentSnapshot, 0, len(e.symbols))
	for _, sym := range e.symbols {
		st := e.states[sym]
		st.mu.Lock()
		out = append(out, st.snapshot())
		st.mu.Unlock()
	}
	return out
}

// ExportTransactions flattens every instrument's recent trades into one
// sequence sorted by timestamp descending (most recent first).
func (e *Engine) ExportTransactions() []domain.Trade {
	var out []domain.Trade
	for _, sym := range e.symbols {
		st := e.states[sym]
		st.mu.Lock()
		out = append(out, st.recentTrades.ValuesNewestFirst()...)
		st.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Start launches the tick scheduler. It is a no-op if already running.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		return nil
	}
	e.parent = ctx
	e.startLoopLocked()
	slog.Info("engine started",
		slog.Int("instruments", len(e.symbols)),
		slog.Duration("tick_interval", e.params.TickInterval),
	)
	return nil
}

// Stop halts the tick scheduler and waits for any in-flight tick to finish.
// No tick fires after Stop returns.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	e.stopLoopLocked()
}

// Reset stops the scheduler, clears the session registry, reinitializes
// every instrument from its static configuration and restarts the
// scheduler. This is a full state replacement, not an incremental clear.
func (e *Engine) Reset() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.stopLoopLocked()

	e.sessions.Clear()
	for _, st := range e.states {
		st.mu.Lock()
		st.reinit(e.params.RecentTradesCap, e.params.PriceHistoryCap)
		st.mu.Unlock()
	}

	infra.GlobalMetrics.SetActiveSessions(0)
	infra.GlobalMetrics.RecordReset()

	// A stopped scheduler resumes on reset (but only once Start has ever
	// supplied a parent context).
	if e.parent != nil {
		e.startLoopLocked()
	}
	slog.Info("engine reset")
}
