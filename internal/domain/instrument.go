package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

// String returns the string representation of Side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide converts "BUY" or "SELL" into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return 0, ErrInvalidInput
	}
}

// Direction returns +1 for buys and -1 for sells.
func (s Side) Direction() int64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// InstrumentConfig holds the static per-instrument parameters. Loaded once at
// startup and never mutated.
type InstrumentConfig struct {
	Symbol            string          `yaml:"-" json:"symbol"`
	StartPrice        decimal.Decimal `yaml:"start_price" json:"start_price"`
	DailyVolume       int64           `yaml:"daily_volume" json:"daily_volume"`
	ImpactSensitivity float64         `yaml:"impact_sensitivity" json:"impact_sensitivity"`
}

// Trade is a single executed trade. Immutable once recorded.
type Trade struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Quantity       int64           `json:"quantity"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	Timestamp      time.Time       `json:"timestamp"`
	// ResultingPrice is the instrument price immediately after this trade.
	ResultingPrice decimal.Decimal `json:"resulting_price"`
}

// Value returns the notional value of the trade (quantity x execution price).
func (t Trade) Value() decimal.Decimal {
	return t.ExecutionPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// InstrumentSnapshot is a read-only copy of one instrument's live state.
type InstrumentSnapshot struct {
	Symbol            string            `json:"symbol"`
	Price             decimal.Decimal   `json:"price"`
	OpenPrice         decimal.Decimal   `json:"open_price"`
	High              decimal.Decimal   `json:"high"`
	Low               decimal.Decimal   `json:"low"`
	VolumeTraded      int64             `json:"volume_traded"`
	CumulativeNetFlow decimal.Decimal   `json:"cumulative_net_flow"`
	RecentTrades      []Trade           `json:"recent_trades"` // newest-first
	PriceHistory      []decimal.Decimal `json:"price_history"` // oldest-first
	LastUpdate        time.Time         `json:"last_update"`
}

// ChangePct returns the percent change from the open price, or zero if the
// open price is not set.
func (s InstrumentSnapshot) ChangePct() decimal.Decimal {
	if s.OpenPrice.IsZero() {
		return decimal.Zero
	}
	return s.Price.Sub(s.OpenPrice).Div(s.OpenPrice).Mul(decimal.NewFromInt(100))
}
