package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the persisted audit form of a Trade. The journal is
// write-only from the engine's point of view: state is never restored from
// it, it only backs the export surface.
type TradeRecord struct {
	ID             string          `gorm:"primaryKey" json:"id"` // ULID, time-sortable
	Symbol         string          `gorm:"index" json:"symbol"`
	Side           string          `json:"side"`
	Quantity       int64           `json:"quantity"`
	ExecutionPrice decimal.Decimal `gorm:"type:TEXT" json:"execution_price"`
	ResultingPrice decimal.Decimal `gorm:"type:TEXT" json:"resulting_price"`
	ExecutedAt     time.Time       `gorm:"index" json:"executed_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewTradeRecord converts a domain Trade into its persisted form.
func NewTradeRecord(t Trade) TradeRecord {
	return TradeRecord{
		ID:             t.ID,
		Symbol:         t.Symbol,
		Side:           t.Side.String(),
		Quantity:       t.Quantity,
		ExecutionPrice: t.ExecutionPrice,
		ResultingPrice: t.ResultingPrice,
		ExecutedAt:     t.Timestamp,
	}
}
