package execution

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire shapes of the /info responses used by this package.

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

type perpAssetWire struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	MaxLeverage int    `json:"maxLeverage"`
	IsDelisted  bool   `json:"isDelisted"`
}

type perpMetaWire struct {
	Universe []perpAssetWire `json:"universe"`
}

type perpAssetCtxWire struct {
	MarkPx       decimal.Decimal `json:"markPx"`
	MidPx        decimal.Decimal `json:"midPx"`
	DayNtlVlm    decimal.Decimal `json:"dayNtlVlm"`
	Funding      decimal.Decimal `json:"funding"`
	OpenInterest decimal.Decimal `json:"openInterest"`
}

type spotTokenWire struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	WeiDecimals int    `json:"weiDecimals"`
	Index       int    `json:"index"`
	TokenID     string `json:"tokenId"`
}

type spotPairWire struct {
	Name   string `json:"name"`
	Tokens [2]int `json:"tokens"`
	Index  int    `json:"index"`
}

type spotMetaWire struct {
	Tokens   []spotTokenWire `json:"tokens"`
	Universe []spotPairWire  `json:"universe"`
}

type spotAssetCtxWire struct {
	Coin      string          `json:"coin"`
	MarkPx    decimal.Decimal `json:"markPx"`
	MidPx     decimal.Decimal `json:"midPx"`
	DayNtlVlm decimal.Decimal `json:"dayNtlVlm"`
}

type marginSummaryWire struct {
	AccountValue    decimal.Decimal `json:"accountValue"`
	TotalMarginUsed decimal.Decimal `json:"totalMarginUsed"`
	TotalNtlPos     decimal.Decimal `json:"totalNtlPos"`
}

type leverageWire struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type positionWire struct {
	Coin          string          `json:"coin"`
	Szi           decimal.Decimal `json:"szi"`
	EntryPx       decimal.Decimal `json:"entryPx"`
	PositionValue decimal.Decimal `json:"positionValue"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
	Leverage      leverageWire    `json:"leverage"`
}

type assetPositionWire struct {
	Position positionWire `json:"position"`
	Type     string       `json:"type"`
}

type clearinghouseStateWire struct {
	MarginSummary      marginSummaryWire   `json:"marginSummary"`
	CrossMarginSummary marginSummaryWire   `json:"crossMarginSummary"`
	Withdrawable       decimal.Decimal     `json:"withdrawable"`
	AssetPositions     []assetPositionWire `json:"assetPositions"`
}

type openOrderWire struct {
	Coin      string          `json:"coin"`
	LimitPx   decimal.Decimal `json:"limitPx"`
	Oid       uint64          `json:"oid"`
	Side      string          `json:"side"`
	Sz        decimal.Decimal `json:"sz"`
	Timestamp int64           `json:"timestamp"`
}

// splitPair decodes the two-element [meta, ctxs] arrays returned by the
// *MetaAndAssetCtxs queries.
func splitPair(raw []json.RawMessage, meta, ctxs interface{}) error {
	if len(raw) != 2 {
		return errUnexpectedShape
	}
	if err := json.Unmarshal(raw[0], meta); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], ctxs)
}
