package engine

import (
	"math"
	"time"
)

// sessionDriftBias returns the instantaneous per-second price drift for one
// instrument attributable to all active news sessions. Each session decays
// on its own clock from its own activation instant; sessions are
// independent and additive.
func (e *Engine) sessionDriftBias(symbol string, now time.Time) float64 {
	var total float64
	for id, start := range e.sessions.Active() {
		spec, ok := e.specs[id]
		if !ok {
			continue
		}
		target := spec.DriftTarget(symbol)
		if target == 0 {
			continue
		}

		age := now.Sub(start).Seconds()
		if age < 0 {
			age = 0
		}
		decay := math.Exp(-math.Ln2 * age / e.params.HalfLifeSec)
		perSecond := target / e.params.DriftWindowSec * decay

		total += spec.Weight * perSecond
	}
	return total
}

// applyMeanReversion dampens further negative drift once the price has
// fallen more than MeanRevThreshold below the open, modelling dip-buying
// pressure. The rule is one-sided: upside moves are never dampened.
// Caller must hold st.mu.
func (e *Engine) applyMeanReversion(st *instrumentState, drift float64) float64 {
	if drift >= 0 {
		return drift
	}
	changeFromOpen := st.price.Sub(st.openPrice).Div(st.openPrice).InexactFloat64()
	if changeFromOpen < e.params.MeanRevThreshold {
		return drift * e.params.MeanRevFactor
	}
	return drift
}
