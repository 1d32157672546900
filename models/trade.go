package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is one public trade from the venue's trades channel.
type TradeEvent struct {
	Symbol  string
	Side    Side
	Price   decimal.Decimal
	Size    decimal.Decimal
	Time    time.Time
	TradeID uint64
	Hash    string
	Buyer   string
	Seller  string
}

// Notional returns price * size.
func (t TradeEvent) Notional() decimal.Decimal {
	return t.Price.Mul(t.Size)
}

// ShortHash truncates the settlement hash for display.
func (t TradeEvent) ShortHash() string {
	if len(t.Hash) > 8 {
		return t.Hash[:8] + "..."
	}
	return t.Hash
}
