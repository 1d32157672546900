// Package models holds the order and market types shared by the risk,
// execution and marketdata packages.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) IsBuy() bool {
	return s == SideBuy
}

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type TimeInForce string

const (
	TimeInForceGtc TimeInForce = "Gtc"
	TimeInForceIoc TimeInForce = "Ioc"
	TimeInForceAlo TimeInForce = "Alo"
)

// ParseTimeInForce accepts the venue spelling in any letter case.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gtc", "":
		return TimeInForceGtc, nil
	case "ioc":
		return TimeInForceIoc, nil
	case "alo":
		return TimeInForceAlo, nil
	default:
		return "", fmt.Errorf("invalid time in force %q (expected Gtc, Ioc or Alo)", s)
	}
}

var (
	// DefaultSlippage is applied to market orders when the intent carries none.
	DefaultSlippage = decimal.NewFromFloat(0.05)
	// MaxSlippage is the largest slippage tolerance an intent may request.
	MaxSlippage = decimal.NewFromFloat(0.10)
)

// OrderIntent is a raw request to trade, built once per CLI invocation and
// consumed once by the order gateway.
type OrderIntent struct {
	Symbol   string
	Side     Side
	Quantity decimal.Decimal

	// LimitPrice is nil for market orders.
	LimitPrice *decimal.Decimal

	// Leverage of 0 leaves the account leverage unchanged.
	Leverage int

	ReduceOnly  bool
	TimeInForce TimeInForce

	// Slippage overrides DefaultSlippage for market orders.
	Slippage *decimal.Decimal
	// TickSize rounds the limit price to a multiple of the tick.
	TickSize *decimal.Decimal
}

func (o OrderIntent) IsMarket() bool {
	return o.LimitPrice == nil
}

// EffectiveSlippage returns the slippage tolerance used for market orders.
func (o OrderIntent) EffectiveSlippage() decimal.Decimal {
	if o.Slippage != nil {
		return *o.Slippage
	}
	return DefaultSlippage
}

// Validate checks the intent's shape. It does not apply any risk limits.
func (o OrderIntent) Validate() error {
	if strings.TrimSpace(o.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("invalid side %q", o.Side)
	}
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be greater than 0, got %s", o.Quantity)
	}
	if o.LimitPrice != nil && !o.LimitPrice.IsPositive() {
		return fmt.Errorf("limit price must be greater than 0, got %s", o.LimitPrice)
	}
	if o.Leverage < 0 {
		return fmt.Errorf("leverage must be at least 1, got %d", o.Leverage)
	}
	if _, err := ParseTimeInForce(string(o.TimeInForce)); err != nil {
		return err
	}
	if err := ValidateSlippage(o.Slippage); err != nil {
		return err
	}
	return ValidateTickSize(o.TickSize)
}

// ValidateSlippage accepts nil or a value within [0, MaxSlippage].
func ValidateSlippage(slippage *decimal.Decimal) error {
	if slippage == nil {
		return nil
	}
	if slippage.IsNegative() || slippage.GreaterThan(MaxSlippage) {
		return fmt.Errorf("slippage must be between 0%% and 10%% (0.0 to 0.1), got %s", slippage)
	}
	return nil
}

// ValidateTickSize accepts nil or a strictly positive tick.
func ValidateTickSize(tick *decimal.Decimal) error {
	if tick == nil {
		return nil
	}
	if !tick.IsPositive() {
		return fmt.Errorf("tick size must be greater than 0, got %s", tick)
	}
	return nil
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

type OutcomeKind string

const (
	OutcomeFilled   OutcomeKind = "filled"
	OutcomeResting  OutcomeKind = "resting"
	OutcomeRejected OutcomeKind = "rejected"
)

// OrderOutcome is the single normalized result of an order placement. Kind
// selects which of the remaining fields are meaningful:
//
//	Filled:   OrderID, FilledQty, AvgPrice (optional)
//	Resting:  OrderID
//	Rejected: Reason
type OrderOutcome struct {
	Status    OutcomeStatus    `json:"status"`
	Kind      OutcomeKind      `json:"type"`
	OrderID   uint64           `json:"order_id,omitempty"`
	FilledQty decimal.Decimal  `json:"filled_qty"`
	AvgPrice  *decimal.Decimal `json:"avg_price,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func Filled(orderID uint64, qty decimal.Decimal, avgPrice *decimal.Decimal, ts time.Time) OrderOutcome {
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	return OrderOutcome{
		Status:    OutcomeSuccess,
		Kind:      OutcomeFilled,
		OrderID:   orderID,
		FilledQty: qty,
		AvgPrice:  avgPrice,
		Timestamp: ts,
	}
}

func Resting(orderID uint64, ts time.Time) OrderOutcome {
	return OrderOutcome{
		Status:    OutcomeSuccess,
		Kind:      OutcomeResting,
		OrderID:   orderID,
		FilledQty: decimal.Zero,
		Timestamp: ts,
	}
}

func Rejected(reason string, ts time.Time) OrderOutcome {
	return OrderOutcome{
		Status:    OutcomeError,
		Kind:      OutcomeRejected,
		FilledQty: decimal.Zero,
		Reason:    reason,
		Timestamp: ts,
	}
}

func (o OrderOutcome) IsRejected() bool {
	return o.Kind == OutcomeRejected
}
