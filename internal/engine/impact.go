package engine

import (
	"log/slog"
	"math"

	"equity_sim/internal/domain"
	"equity_sim/internal/ident"
	"equity_sim/internal/infra"

	"github.com/shopspring/decimal"
)

// ApplyTrade executes one trade against an instrument and returns the new
// price. Impact follows a clamped square-root law: it grows sub-linearly
// with trade size relative to the notional depth at the current price, and
// no single trade can move the price by more than ImpactClamp.
func (e *Engine) ApplyTrade(symbol string, side domain.Side, quantity int64, executionPrice decimal.Decimal) (decimal.Decimal, error) {
	if side != domain.SideBuy && side != domain.SideSell {
		infra.GlobalMetrics.RecordTradeRejected()
		return decimal.Zero, domain.NewTradeError("applyTrade", symbol, domain.ErrInvalidInput)
	}
	if quantity <= 0 || !executionPrice.IsPositive() {
		infra.GlobalMetrics.RecordTradeRejected()
		return decimal.Zero, domain.NewTradeError("applyTrade", symbol, domain.ErrInvalidInput)
	}

	st, ok := e.states[symbol]
	if !ok {
		infra.GlobalMetrics.RecordTradeRejected()
		slog.Warn("trade rejected: unknown instrument", slog.String("symbol", symbol))
		return decimal.Zero, domain.NewTradeError("applyTrade", symbol, domain.ErrUnknownInstrument)
	}

	now := e.now()
	qty := decimal.NewFromInt(quantity)
	tradeValue := executionPrice.Mul(qty)
	direction := side.Direction()

	st.mu.Lock()

	liquidity := e.liquidityValue(st)
	raw := float64(direction) * st.cfg.ImpactSensitivity *
		math.Sqrt(tradeValue.Div(liquidity).InexactFloat64())
	impact := clamp(raw, e.params.ImpactClamp)

	newPrice := st.price.Mul(decimal.NewFromFloat(1 + impact))

	st.volumeTraded += quantity
	st.cumNetFlow = st.cumNetFlow.Add(tradeValue.Mul(decimal.NewFromInt(direction)))

	trade := domain.Trade{
		ID:             ident.New(),
		Symbol:         symbol,
		Side:           side,
		Quantity:       quantity,
		ExecutionPrice: executionPrice,
		Timestamp:      now,
		ResultingPrice: newPrice,
	}
	st.recentTrades.Push(trade)
	st.setPrice(newPrice, now)

	st.mu.Unlock()

	infra.GlobalMetrics.RecordTradeApplied()
	slog.Info("trade applied",
		slog.String("symbol", symbol),
		slog.String("side", side.String()),
		slog.Int64("qty", quantity),
		slog.String("exec_price", executionPrice.String()),
		slog.Float64("impact_pct", impact*100),
		slog.String("new_price", newPrice.String()),
	)

	if e.onTrade != nil {
		e.onTrade(trade)
	}
	return newPrice, nil
}

// liquidityValue is the notional depth available to absorb impact at the
// current price: dailyVolume * price * depthFactor. Caller must hold st.mu.
func (e *Engine) liquidityValue(st *instrumentState) decimal.Decimal {
	return st.price.
		Mul(decimal.NewFromInt(st.cfg.DailyVolume)).
		Mul(decimal.NewFromFloat(e.params.DepthFactor))
}

func clamp(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}
