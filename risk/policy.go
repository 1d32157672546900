// Package risk implements the local pre-trade policy applied to every order
// before it is sent to the exchange.
package risk

import (
	"fmt"

	"hyperliquid-trader/config"
	"hyperliquid-trader/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Check names the rule that rejected an order.
type Check string

const (
	CheckNone      Check = ""
	CheckDisabled  Check = "disabled"
	CheckLeverage  Check = "leverage"
	CheckPerOrder  Check = "per_order"
	CheckPerSymbol Check = "per_symbol"
)

// Decision is the result of a policy evaluation. A zero Check means accepted.
type Decision struct {
	Check    Check
	Reason   string
	Notional decimal.Decimal
}

func (d Decision) Accepted() bool {
	return d.Check == CheckNone
}

func accept(notional decimal.Decimal) Decision {
	return Decision{Notional: notional}
}

func reject(check Check, format string, args ...interface{}) Decision {
	return Decision{Check: check, Reason: fmt.Sprintf(format, args...)}
}

// Policy evaluates order intents against the configured risk limits. It holds
// no mutable state; the same inputs always produce the same decision.
type Policy struct {
	limits config.RiskLimits
	logger *zap.Logger
}

func NewPolicy(limits config.RiskLimits, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{limits: limits, logger: logger}
}

func (p *Policy) Limits() config.RiskLimits {
	return p.limits
}

// Precheck runs the checks that do not need a price: symbol gate, then
// leverage ceiling.
func (p *Policy) Precheck(intent models.OrderIntent) Decision {
	sym := p.limits.SymbolLimits(intent.Symbol)

	if !sym.Enabled {
		return reject(CheckDisabled, "Trading disabled for symbol: %s", intent.Symbol)
	}

	if intent.Leverage > 0 && intent.Leverage > sym.MaxLeverage {
		return reject(CheckLeverage, "Requested leverage %dx exceeds configured maximum %dx for %s",
			intent.Leverage, sym.MaxLeverage, intent.Symbol)
	}

	return accept(decimal.Zero)
}

// CheckNotional values the order at price and checks the global per-order
// ceiling, then the symbol ceiling.
func (p *Policy) CheckNotional(intent models.OrderIntent, price decimal.Decimal) Decision {
	sym := p.limits.SymbolLimits(intent.Symbol)
	notional := intent.Quantity.Mul(price)

	if notional.GreaterThan(p.limits.MaxNotionalPerOrder) {
		return reject(CheckPerOrder, "Order notional $%s exceeds per-order limit $%s",
			notional.StringFixed(2), p.limits.MaxNotionalPerOrder.StringFixed(2))
	}
	if notional.GreaterThan(sym.MaxNotional) {
		return reject(CheckPerSymbol, "Order notional $%s exceeds symbol limit $%s for %s",
			notional.StringFixed(2), sym.MaxNotional.StringFixed(2), intent.Symbol)
	}

	p.logger.Info("Risk check passed",
		zap.String("symbol", intent.Symbol),
		zap.String("qty", intent.Quantity.String()),
		zap.String("price", price.String()),
		zap.String("notional", notional.StringFixed(2)),
		zap.String("per_order_limit", p.limits.MaxNotionalPerOrder.StringFixed(2)),
		zap.String("symbol_limit", sym.MaxNotional.StringFixed(2)),
	)
	return accept(notional)
}

// Evaluate runs every check in order, valuing the order at price. Callers
// without a limit price resolve a reference price first.
func (p *Policy) Evaluate(intent models.OrderIntent, price decimal.Decimal) Decision {
	if d := p.Precheck(intent); !d.Accepted() {
		return d
	}
	return p.CheckNotional(intent, price)
}
