package engine

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"equity_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// stubNoise returns a fixed perturbation regardless of the configured range.
type stubNoise struct{ v float64 }

func (s stubNoise) Uniform(rangePct float64) float64 { return s.v }

func testInstruments() map[string]domain.InstrumentConfig {
	return map[string]domain.InstrumentConfig{
		"TCS":  {StartPrice: decimal.NewFromInt(4100), DailyVolume: 1_800_000, ImpactSensitivity: 1.15},
		"INFY": {StartPrice: decimal.NewFromInt(1520), DailyVolume: 5_400_000, ImpactSensitivity: 1.05},
	}
}

func testSessions() map[string]domain.SessionSpec {
	return map[string]domain.SessionSpec{
		"earnings": {
			ID:     "earnings",
			Weight: 0.8,
			Sentiment: map[string]domain.SentimentLabel{
				"TCS":  domain.SentimentPositive,
				"INFY": domain.SentimentNegative,
			},
			DriftTargets: map[domain.SentimentLabel]float64{
				domain.SentimentPositive: 0.016,
				domain.SentimentNegative: -0.022,
			},
		},
		"selloff": {
			ID:     "selloff",
			Weight: 0.5,
			Sentiment: map[string]domain.SentimentLabel{
				"TCS": domain.SentimentNegativeLean,
			},
			DriftTargets: map[domain.SentimentLabel]float64{
				domain.SentimentNegativeLean: -0.012,
			},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(testInstruments(), testSessions(), DefaultParams())
	e.SetNoiseSource(stubNoise{0})
	return e
}

func TestApplyTrade_ScenarioTCS(t *testing.T) {
	e := newTestEngine(t)

	// liquidity = 1,800,000 * 4100 * 0.02 = 147,600,000
	// tradeValue = 5000 * 4100 = 20,500,000
	// raw = 1.15 * sqrt(20.5/147.6) ~ 0.4287 -> clamps to 0.025
	newPrice, err := e.ApplyTrade("TCS", domain.SideBuy, 5000, decimal.NewFromInt(4100))
	if err != nil {
		t.Fatalf("ApplyTrade failed: %v", err)
	}

	want := decimal.NewFromFloat(4202.5)
	if !newPrice.Equal(want) {
		t.Errorf("new price = %s, want %s", newPrice, want)
	}

	snap, err := e.Snapshot("TCS")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !snap.Price.Equal(want) {
		t.Errorf("snapshot price = %s, want %s", snap.Price, want)
	}
	if snap.VolumeTraded != 5000 {
		t.Errorf("volume = %d, want 5000", snap.VolumeTraded)
	}
	if !snap.CumulativeNetFlow.Equal(decimal.NewFromInt(20_500_000)) {
		t.Errorf("net flow = %s, want 20500000", snap.CumulativeNetFlow)
	}
}

func TestApplyTrade_ImpactSaturates(t *testing.T) {
	e := newTestEngine(t)
	params := DefaultParams()

	cases := []struct {
		name string
		side domain.Side
		qty  int64
	}{
		{"huge buy", domain.SideBuy, 50_000_000},
		{"huge sell", domain.SideSell, 50_000_000},
		{"small buy", domain.SideBuy, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before, _ := e.Snapshot("TCS")
			after, err := e.ApplyTrade("TCS", tc.side, tc.qty, decimal.NewFromInt(4100))
			if err != nil {
				t.Fatalf("ApplyTrade failed: %v", err)
			}

			ratio := after.Div(before.Price).InexactFloat64() - 1
			if math.Abs(ratio) > params.ImpactClamp+1e-12 {
				t.Errorf("impact %v exceeds clamp %v", ratio, params.ImpactClamp)
			}
		})
	}
}

func TestApplyTrade_UnknownInstrument(t *testing.T) {
	e := newTestEngine(t)

	before := e.Snapshots()

	_, err := e.ApplyTrade("UNKNOWN", domain.SideBuy, 100, decimal.NewFromInt(10))
	if !errors.Is(err, domain.ErrUnknownInstrument) {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}

	after := e.Snapshots()
	for i := range before {
		if !before[i].Price.Equal(after[i].Price) || before[i].VolumeTraded != after[i].VolumeTraded {
			t.Errorf("instrument %s mutated by rejected trade", before[i].Symbol)
		}
	}
}

func TestApplyTrade_InvalidInput(t *testing.T) {
	e := newTestEngine(t)

	cases := []struct {
		name  string
		side  domain.Side
		qty   int64
		price decimal.Decimal
	}{
		{"zero qty", domain.SideBuy, 0, decimal.NewFromInt(10)},
		{"negative qty", domain.SideSell, -5, decimal.NewFromInt(10)},
		{"zero price", domain.SideBuy, 100, decimal.Zero},
		{"negative price", domain.SideBuy, 100, decimal.NewFromInt(-10)},
		{"bad side", domain.Side(9), 100, decimal.NewFromInt(10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.ApplyTrade("TCS", tc.side, tc.qty, tc.price)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestApplyTrade_SellReducesFlowAndPrice(t *testing.T) {
	e := newTestEngine(t)

	before, _ := e.Snapshot("TCS")
	after, err := e.ApplyTrade("TCS", domain.SideSell, 5000, decimal.NewFromInt(4100))
	if err != nil {
		t.Fatalf("ApplyTrade failed: %v", err)
	}

	if !after.LessThan(before.Price) {
		t.Errorf("sell should move price down: %s -> %s", before.Price, after)
	}

	snap, _ := e.Snapshot("TCS")
	if !snap.CumulativeNetFlow.IsNegative() {
		t.Errorf("net flow after sell = %s, want negative", snap.CumulativeNetFlow)
	}
}

func TestBoundedBuffers(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 150; i++ {
		if _, err := e.ApplyTrade("TCS", domain.SideBuy, 10, decimal.NewFromInt(4100)); err != nil {
			t.Fatalf("trade %d failed: %v", i, err)
		}
	}

	snap, _ := e.Snapshot("TCS")
	if len(snap.RecentTrades) != 10 {
		t.Errorf("recentTrades len = %d, want 10", len(snap.RecentTrades))
	}
	if len(snap.PriceHistory) != 100 {
		t.Errorf("priceHistory len = %d, want 100", len(snap.PriceHistory))
	}

	// Newest-first: the first entry must be the most recent trade.
	if len(snap.RecentTrades) >= 2 {
		if snap.RecentTrades[0].Timestamp.Before(snap.RecentTrades[1].Timestamp) {
			t.Error("recentTrades should be newest-first")
		}
	}
}

func TestLowHighInvariant(t *testing.T) {
	e := newTestEngine(t)
	e.SetNoiseSource(NewRandNoise(42))
	e.ActivateSession("earnings")

	now := time.Now()
	for i := 0; i < 200; i++ {
		side := domain.SideBuy
		if i%3 == 0 {
			side = domain.SideSell
		}
		e.ApplyTrade("TCS", side, int64(100+i*37), decimal.NewFromInt(4100))
		e.Tick(now.Add(time.Duration(i) * time.Second))

		for _, snap := range e.Snapshots() {
			if snap.Low.GreaterThan(snap.Price) || snap.Price.GreaterThan(snap.High) {
				t.Fatalf("invariant broken for %s: low=%s price=%s high=%s",
					snap.Symbol, snap.Low, snap.Price, snap.High)
			}
		}
	}
}

func TestSessionDriftBias_HalfLife(t *testing.T) {
	e := newTestEngine(t)

	t0 := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	e.now = func() time.Time { return t0 }

	if err := e.ActivateSession("earnings"); err != nil {
		t.Fatalf("ActivateSession failed: %v", err)
	}

	bias0 := e.sessionDriftBias("TCS", t0)
	wantBias0 := 0.8 * 0.016 / 3600
	if math.Abs(bias0-wantBias0) > 1e-15 {
		t.Errorf("bias at activation = %v, want %v", bias0, wantBias0)
	}

	biasHalf := e.sessionDriftBias("TCS", t0.Add(1200*time.Second))
	if math.Abs(biasHalf-bias0/2) > 1e-12 {
		t.Errorf("bias at half-life = %v, want exactly half of %v", biasHalf, bias0)
	}
}

func TestSessionDriftBias_Additive(t *testing.T) {
	e := newTestEngine(t)

	t0 := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	e.now = func() time.Time { return t0 }

	e.ActivateSession("earnings")
	e.ActivateSession("selloff")

	got := e.sessionDriftBias("TCS", t0)
	want := 0.8*0.016/3600 + 0.5*(-0.012)/3600
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("combined bias = %v, want %v", got, want)
	}

	// INFY is covered only by "earnings".
	gotINFY := e.sessionDriftBias("INFY", t0)
	wantINFY := 0.8 * (-0.022) / 3600
	if math.Abs(gotINFY-wantINFY) > 1e-15 {
		t.Errorf("INFY bias = %v, want %v", gotINFY, wantINFY)
	}
}

func TestSessionDriftBias_NoSessions(t *testing.T) {
	e := newTestEngine(t)
	if bias := e.sessionDriftBias("TCS", time.Now()); bias != 0 {
		t.Errorf("bias with no sessions = %v, want 0", bias)
	}
}

func TestMeanReversion_OneSided(t *testing.T) {
	e := newTestEngine(t)
	st := e.states["TCS"]

	t.Run("passes positive drift through", func(t *testing.T) {
		if got := e.applyMeanReversion(st, 0.001); got != 0.001 {
			t.Errorf("positive drift dampened: %v", got)
		}
	})

	t.Run("passes negative drift above threshold", func(t *testing.T) {
		if got := e.applyMeanReversion(st, -0.001); got != -0.001 {
			t.Errorf("drift dampened before threshold: %v", got)
		}
	})

	t.Run("dampens negative drift below threshold", func(t *testing.T) {
		// Push price more than 2% below the open.
		st.mu.Lock()
		st.price = st.openPrice.Mul(decimal.NewFromFloat(0.97))
		st.mu.Unlock()

		got := e.applyMeanReversion(st, -0.001)
		want := -0.001 * 0.4
		if math.Abs(got-want) > 1e-15 {
			t.Errorf("dampened drift = %v, want %v", got, want)
		}

		// Positive drift still passes through after the fall.
		if got := e.applyMeanReversion(st, 0.001); got != 0.001 {
			t.Errorf("positive drift dampened after fall: %v", got)
		}
	})
}

func TestTick_NoiseOnlyWithoutSessionsAndFlow(t *testing.T) {
	e := newTestEngine(t)
	e.SetNoiseSource(stubNoise{0.0001})

	e.Tick(time.Now())

	snap, _ := e.Snapshot("TCS")
	want := decimal.NewFromInt(4100).Mul(decimal.NewFromFloat(1.0001))
	if !snap.Price.Equal(want) {
		t.Errorf("price after noise-only tick = %s, want %s", snap.Price, want)
	}
}

func TestTick_NoiseBounded(t *testing.T) {
	e := newTestEngine(t)
	e.SetNoiseSource(NewRandNoise(7))
	params := DefaultParams()

	now := time.Now()
	for i := 0; i < 500; i++ {
		before, _ := e.Snapshot("TCS")
		e.Tick(now.Add(time.Duration(i) * time.Second))
		after, _ := e.Snapshot("TCS")

		change := after.Price.Div(before.Price).InexactFloat64() - 1
		if math.Abs(change) > params.NoiseRangePct+1e-12 {
			t.Fatalf("tick %d: change %v exceeds noise range %v", i, change, params.NoiseRangePct)
		}
	}
}

func TestTick_FlowImpactClamped(t *testing.T) {
	e := newTestEngine(t)

	// Accumulate extreme one-sided flow, far beyond the clamp.
	for i := 0; i < 20; i++ {
		e.ApplyTrade("TCS", domain.SideBuy, 1_000_000, decimal.NewFromInt(4100))
	}

	before, _ := e.Snapshot("TCS")
	e.Tick(time.Now())
	after, _ := e.Snapshot("TCS")

	change := after.Price.Div(before.Price).InexactFloat64() - 1
	if change > DefaultParams().MaxFlowPct+1e-12 {
		t.Errorf("flow impact %v exceeds MaxFlowPct", change)
	}
	if change <= 0 {
		t.Errorf("heavy buy flow should push price up, got %v", change)
	}
}

func TestActivateSession_Idempotent(t *testing.T) {
	e := newTestEngine(t)

	t0 := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	clock := t0
	e.now = func() time.Time { return clock }

	e.ActivateSession("earnings")
	first := e.sessionDriftBias("TCS", t0.Add(time.Hour))

	clock = t0.Add(30 * time.Minute)
	e.ActivateSession("earnings")
	second := e.sessionDriftBias("TCS", t0.Add(time.Hour))

	if first != second {
		t.Errorf("re-activation changed the drift clock: %v vs %v", first, second)
	}

	if err := e.ActivateSession("no-such-session"); !errors.Is(err, domain.ErrUnknownSession) {
		t.Errorf("expected ErrUnknownSession, got %v", err)
	}
}

func TestReset_RestoresFreshState(t *testing.T) {
	e := newTestEngine(t)

	e.ActivateSession("earnings")
	e.ApplyTrade("TCS", domain.SideBuy, 5000, decimal.NewFromInt(4100))
	e.Tick(time.Now())

	e.Reset()

	if n := len(e.ActiveSessions()); n != 0 {
		t.Errorf("active sessions after reset = %d, want 0", n)
	}

	for _, snap := range e.Snapshots() {
		start := testInstruments()[snap.Symbol].StartPrice
		if !snap.Price.Equal(start) {
			t.Errorf("%s price = %s, want start %s", snap.Symbol, snap.Price, start)
		}
		if !snap.High.Equal(start) || !snap.Low.Equal(start) {
			t.Errorf("%s high/low not reset: %s/%s", snap.Symbol, snap.High, snap.Low)
		}
		if snap.VolumeTraded != 0 || !snap.CumulativeNetFlow.IsZero() {
			t.Errorf("%s volume/flow not reset", snap.Symbol)
		}
		if len(snap.RecentTrades) != 0 {
			t.Errorf("%s trade log not empty after reset", snap.Symbol)
		}
		if len(snap.PriceHistory) != 1 || !snap.PriceHistory[0].Equal(start) {
			t.Errorf("%s price history = %v, want single start entry", snap.Symbol, snap.PriceHistory)
		}
	}
}

func TestStartStop_NoTickAfterStop(t *testing.T) {
	params := DefaultParams()
	params.TickInterval = 5 * time.Millisecond

	e := New(testInstruments(), testSessions(), params)
	e.SetNoiseSource(stubNoise{0})

	var ticks atomic.Int64
	e.OnTick(func([]domain.InstrumentSnapshot) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not tick")
		case <-time.After(time.Millisecond):
		}
	}

	e.Stop()
	after := ticks.Load()

	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != after {
		t.Errorf("tick fired after Stop returned: %d -> %d", after, ticks.Load())
	}
}

func TestReset_RestartsScheduler(t *testing.T) {
	params := DefaultParams()
	params.TickInterval = 5 * time.Millisecond

	e := New(testInstruments(), testSessions(), params)
	e.SetNoiseSource(stubNoise{0})

	var ticks atomic.Int64
	e.OnTick(func([]domain.InstrumentSnapshot) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	e.Reset()

	base := ticks.Load()
	deadline := time.After(2 * time.Second)
	for ticks.Load() <= base {
		select {
		case <-deadline:
			t.Fatal("scheduler did not resume after Reset")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestExportTransactions_SortedDescending(t *testing.T) {
	e := newTestEngine(t)

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := t0
	e.now = func() time.Time { return clock }

	e.ApplyTrade("TCS", domain.SideBuy, 100, decimal.NewFromInt(4100))
	clock = t0.Add(time.Second)
	e.ApplyTrade("INFY", domain.SideSell, 200, decimal.NewFromInt(1520))
	clock = t0.Add(2 * time.Second)
	e.ApplyTrade("TCS", domain.SideSell, 50, decimal.NewFromInt(4100))

	log := e.ExportTransactions()
	if len(log) != 3 {
		t.Fatalf("export len = %d, want 3", len(log))
	}
	if log[0].Symbol != "TCS" || log[0].Side != domain.SideSell {
		t.Errorf("newest entry should be the TCS sell, got %s %s", log[0].Symbol, log[0].Side)
	}
	for i := 1; i < len(log); i++ {
		if log[i].Timestamp.After(log[i-1].Timestamp) {
			t.Errorf("export not sorted descending at %d", i)
		}
	}
}

func TestSnapshots_SortedBySymbol(t *testing.T) {
	e := newTestEngine(t)

	snaps := e.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("snapshots len = %d, want 2", len(snaps))
	}
	if snaps[0].Symbol != "INFY" || snaps[1].Symbol != "TCS" {
		t.Errorf("snapshots not sorted: %s, %s", snaps[0].Symbol, snaps[1].Symbol)
	}
}
