package engine

import (
	"sync"
	"time"

	"equity_sim/internal/domain"
	"equity_sim/internal/ringbuf"

	"github.com/shopspring/decimal"
)

// instrumentState is the live mutable record for one instrument. Every
// read-modify-write sequence on it happens under mu: the trade path and the
// tick path are the two writers and must never interleave (per-instrument
// atomicity; cross-instrument atomicity is not required).
type instrumentState struct {
	mu sync.Mutex

	cfg domain.InstrumentConfig

	price     decimal.Decimal
	openPrice decimal.Decimal
	high      decimal.Decimal
	low       decimal.Decimal

	cumNetFlow   decimal.Decimal // signed sum of direction*qty*price since reset
	volumeTraded int64

	recentTrades *ringbuf.Ring[domain.Trade]
	priceHistory *ringbuf.Ring[decimal.Decimal]

	lastUpdate time.Time
}

func newInstrumentState(cfg domain.InstrumentConfig, tradesCap, historyCap int) *instrumentState {
	st := &instrumentState{cfg: cfg}
	st.reinit(tradesCap, historyCap)
	return st
}

// reinit replaces the whole mutable state from the static configuration.
// Caller must hold mu when the state is shared.
func (st *instrumentState) reinit(tradesCap, historyCap int) {
	st.price = st.cfg.StartPrice
	st.openPrice = st.cfg.StartPrice
	st.high = st.cfg.StartPrice
	st.low = st.cfg.StartPrice
	st.cumNetFlow = decimal.Zero
	st.volumeTraded = 0
	st.recentTrades = ringbuf.New[domain.Trade](tradesCap)
	st.priceHistory = ringbuf.New[decimal.Decimal](historyCap)
	st.priceHistory.Push(st.cfg.StartPrice)
	st.lastUpdate = time.Time{}
}

// setPrice moves the price and maintains the low <= price <= high invariant
// plus the bounded history. Caller must hold mu.
func (st *instrumentState) setPrice(p decimal.Decimal, now time.Time) {
	st.price = p
	if p.GreaterThan(st.high) {
		st.high = p
	}
	if p.LessThan(st.low) {
		st.low = p
	}
	st.priceHistory.Push(p)
	st.lastUpdate = now
}

// snapshot copies the state into its read-only view. Caller must hold mu.
func (st *instrumentState) snapshot() domain.InstrumentSnapshot {
	return domain.InstrumentSnapshot{
		Symbol:            st.cfg.Symbol,
		Price:             st.price,
		OpenPrice:         st.openPrice,
		High:              st.high,
		Low:               st.low,
		VolumeTraded:      st.volumeTraded,
		CumulativeNetFlow: st.cumNetFlow,
		RecentTrades:      st.recentTrades.ValuesNewestFirst(),
		PriceHistory:      st.priceHistory.Values(),
		LastUpdate:        st.lastUpdate,
	}
}
