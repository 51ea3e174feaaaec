package engine

import (
	"context"
	"log/slog"
	"time"

	"equity_sim/internal/domain"
	"equity_sim/internal/infra"

	"github.com/shopspring/decimal"
)

// startLoopLocked launches the periodic tick goroutine. Caller holds runMu.
func (e *Engine) startLoopLocked() {
	ctx, cancel := context.WithCancel(e.parent)
	e.cancel = cancel
	e.running = true

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.params.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("tick scheduler stopped")
				return
			case <-ticker.C:
				e.Tick(e.now())
			}
		}
	}()
}

// stopLoopLocked cancels the tick goroutine and waits for any in-flight
// tick to complete. Caller holds runMu.
func (e *Engine) stopLoopLocked() {
	if !e.running {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.running = false
}

// Tick recomputes every instrument's price once: accumulated flow pressure
// plus decaying news drift plus uniform noise, applied multiplicatively.
// Instruments are processed independently, each under its own lock.
func (e *Engine) Tick(now time.Time) {
	started := time.Now()

	var snaps []domain.InstrumentSnapshot
	if e.onTick != nil {
		snaps = make([]domain.InstrumentSnapshot, 0, len(e.symbols))
	}

	for _, sym := range e.symbols {
		st := e.states[sym]
		st.mu.Lock()
		e.tickInstrument(st, now)
		if e.onTick != nil {
			snaps = append(snaps, st.snapshot())
		}
		st.mu.Unlock()
	}

	infra.GlobalMetrics.RecordTick(time.Since(started).Nanoseconds())

	if e.onTick != nil {
		e.onTick(snaps)
	}
}

// tickInstrument applies one tick to a single instrument. Caller holds st.mu.
func (e *Engine) tickInstrument(st *instrumentState, now time.Time) {
	liquidity := e.liquidityValue(st).Mul(decimal.NewFromFloat(e.params.FlowDivisor))
	flowImpact := clamp(st.cumNetFlow.Div(liquidity).InexactFloat64(), e.params.MaxFlowPct)

	newsDrift := e.applyMeanReversion(st, e.sessionDriftBias(st.cfg.Symbol, now))
	noise := e.noise.Uniform(e.params.NoiseRangePct)

	totalChange := flowImpact + newsDrift + noise
	st.setPrice(st.price.Mul(decimal.NewFromFloat(1+totalChange)), now)
}
