package execution

import (
	"encoding/hex"
	"strconv"

	"hyperliquid-trader/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field order in the action structs is part of the signature: the venue
// hashes the msgpack encoding with keys in exactly this order.

type limitWire struct {
	Tif string `json:"tif" msgpack:"tif"`
}

type orderTypeWire struct {
	Limit limitWire `json:"limit" msgpack:"limit"`
}

type orderWire struct {
	Asset      int           `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	LimitPx    string        `json:"p" msgpack:"p"`
	Size       string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  orderTypeWire `json:"t" msgpack:"t"`
	Cloid      string        `json:"c,omitempty" msgpack:"c,omitempty"`
}

type orderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []orderWire `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"`
}

type cancelWire struct {
	Asset   int    `json:"a" msgpack:"a"`
	OrderID uint64 `json:"o" msgpack:"o"`
}

type cancelAction struct {
	Type    string       `json:"type" msgpack:"type"`
	Cancels []cancelWire `json:"cancels" msgpack:"cancels"`
}

type updateLeverageAction struct {
	Type     string `json:"type" msgpack:"type"`
	Asset    int    `json:"asset" msgpack:"asset"`
	IsCross  bool   `json:"isCross" msgpack:"isCross"`
	Leverage int    `json:"leverage" msgpack:"leverage"`
}

func newOrderAction(o orderWire) orderAction {
	return orderAction{Type: "order", Orders: []orderWire{o}, Grouping: "na"}
}

func newCancelAction(asset int, oid uint64) cancelAction {
	return cancelAction{Type: "cancel", Cancels: []cancelWire{{Asset: asset, OrderID: oid}}}
}

func newUpdateLeverageAction(asset, leverage int) updateLeverageAction {
	return updateLeverageAction{Type: "updateLeverage", Asset: asset, IsCross: true, Leverage: leverage}
}

// newCloid returns a random 128-bit client order id.
func newCloid() string {
	id := uuid.New()
	return "0x" + hex.EncodeToString(id[:])
}

// formatWire renders a decimal the way the venue expects: at most 8
// decimals, no trailing zeros.
func formatWire(d decimal.Decimal) string {
	s := d.Round(8).String()
	if s == "-0" {
		return "0"
	}
	return s
}

// roundSize rounds a quantity to the asset's size decimals.
func roundSize(qty decimal.Decimal, szDecimals int) decimal.Decimal {
	return qty.Round(int32(szDecimals))
}

// roundPrice keeps 5 significant figures and at most
// (6 - szDecimals) decimals for perps, (8 - szDecimals) for spot.
func roundPrice(px decimal.Decimal, szDecimals int, spot bool) decimal.Decimal {
	maxDecimals := 6
	if spot {
		maxDecimals = 8
	}
	sig, err := decimal.NewFromString(strconv.FormatFloat(px.InexactFloat64(), 'g', 5, 64))
	if err != nil {
		sig = px
	}
	places := maxDecimals - szDecimals
	if places < 0 {
		places = 0
	}
	return sig.Round(int32(places))
}

// slippagePrice is the aggressive limit price used for market orders.
func slippagePrice(mid decimal.Decimal, isBuy bool, slippage decimal.Decimal, asset AssetInfo) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(slippage)
	if !isBuy {
		factor = decimal.NewFromInt(1).Sub(slippage)
	}
	return roundPrice(mid.Mul(factor), asset.SzDecimals, asset.Spot)
}

// roundToTick rounds px to the nearest multiple of tick.
func roundToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	return px.Div(tick).Round(0).Mul(tick)
}

// tifWire canonicalizes the time-in-force spelling; unknown values fall back
// to Gtc.
func tifWire(tif models.TimeInForce) string {
	parsed, err := models.ParseTimeInForce(string(tif))
	if err != nil {
		return string(models.TimeInForceGtc)
	}
	return string(parsed)
}
