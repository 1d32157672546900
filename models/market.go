package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketInfo is one perpetual market from the venue's asset contexts.
type MarketInfo struct {
	Symbol       string          `json:"symbol"`
	MarkPrice    decimal.Decimal `json:"mark_price"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	FundingRate  decimal.Decimal `json:"funding_rate"`
	MaxLeverage  int             `json:"max_leverage"`
	OpenInterest decimal.Decimal `json:"open_interest"`
}

type StatusReport struct {
	Markets      []MarketInfo `json:"markets"`
	TotalMarkets int          `json:"total_markets"`
}

type PositionInfo struct {
	Symbol        string          `json:"symbol"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	Leverage      int             `json:"leverage"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	PositionValue decimal.Decimal `json:"position_value"`
}

type BalanceReport struct {
	AccountValue    decimal.Decimal `json:"account_value"`
	Withdrawable    decimal.Decimal `json:"withdrawable"`
	CrossMarginUsed decimal.Decimal `json:"cross_margin_used"`
	Positions       []PositionInfo  `json:"positions"`
}

type SpotToken struct {
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	TokenID  string `json:"token_id"`
}

type SpotPair struct {
	Name      string          `json:"name"`
	MarkPrice decimal.Decimal `json:"mark_price"`
	MidPrice  decimal.Decimal `json:"mid_price"`
	Volume24h decimal.Decimal `json:"volume_24h"`
}

type SpotReport struct {
	Tokens []SpotToken `json:"tokens"`
	Pairs  []SpotPair  `json:"pairs"`
}

type OpenOrder struct {
	OrderID   uint64          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp time.Time       `json:"timestamp"`
}
