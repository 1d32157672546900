package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hyperliquid-trader/metrics"
	"hyperliquid-trader/models"
	"hyperliquid-trader/risk"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNoPosition is returned when a reduce-only market order finds nothing to close.
	ErrNoPosition = errors.New("no open position")
	// ErrCancelRejected is returned when the venue refuses a cancel.
	ErrCancelRejected = errors.New("cancel rejected")
	// ErrLeverageRejected is returned when the venue refuses a leverage update.
	ErrLeverageRejected = errors.New("leverage update rejected")
)

// OrderGateway turns order intents into exchange orders. Policy failures come
// back as Rejected outcomes; only transport, signing and protocol failures
// are returned as errors.
type OrderGateway struct {
	client *Client
	assets *AssetDirectory
	oracle PriceOracle
	policy *risk.Policy
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderGateway(client *Client, policy *risk.Policy, oracle PriceOracle, logger *zap.Logger) *OrderGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if oracle == nil {
		oracle = NewMidsOracle(client)
	}
	return &OrderGateway{
		client: client,
		assets: NewAssetDirectory(client),
		oracle: oracle,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

func orderKind(intent models.OrderIntent) string {
	switch {
	case !intent.IsMarket():
		return "limit"
	case intent.ReduceOnly:
		return "close"
	default:
		return "market"
	}
}

// Place validates intent, applies the risk policy, optionally updates
// leverage and submits the order.
func (g *OrderGateway) Place(ctx context.Context, intent models.OrderIntent) (models.OrderOutcome, error) {
	ts := g.now()
	started := time.Now()
	kind := orderKind(intent)

	outcome, err := g.place(ctx, intent, ts)
	if err != nil {
		metrics.RecordOrder(kind, "error", started)
		g.logger.Error("Order placement failed",
			zap.String("symbol", intent.Symbol),
			zap.String("kind", kind),
			zap.Error(err))
		return models.OrderOutcome{}, err
	}

	metrics.RecordOrder(kind, string(outcome.Kind), started)
	g.logger.Info("Order placed",
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.String("kind", kind),
		zap.String("outcome", string(outcome.Kind)),
		zap.Uint64("oid", outcome.OrderID),
		zap.String("reason", outcome.Reason))
	return outcome, nil
}

func (g *OrderGateway) reject(check risk.Check, reason string, ts time.Time) models.OrderOutcome {
	if check != risk.CheckNone {
		metrics.RecordRiskRejection(string(check))
	}
	return models.Rejected(reason, ts)
}

func (g *OrderGateway) place(ctx context.Context, intent models.OrderIntent, ts time.Time) (models.OrderOutcome, error) {
	if err := intent.Validate(); err != nil {
		return models.Rejected(err.Error(), ts), nil
	}

	if d := g.policy.Precheck(intent); !d.Accepted() {
		return g.reject(d.Check, d.Reason, ts), nil
	}

	// Limit orders are valued at the price that will be submitted; market
	// orders at the mid, which is also the base of the slippage price.
	price := decimal.Zero
	if intent.LimitPrice != nil {
		price = submittedLimit(intent)
	} else {
		mid, err := g.oracle.ReferencePrice(ctx, intent.Symbol)
		if errors.Is(err, ErrNoPrice) {
			return models.Rejected(err.Error(), ts), nil
		}
		if err != nil {
			return models.OrderOutcome{}, err
		}
		price = mid
	}

	if d := g.policy.CheckNotional(intent, price); !d.Accepted() {
		return g.reject(d.Check, d.Reason, ts), nil
	}

	asset, err := g.assets.Lookup(ctx, intent.Symbol)
	if err != nil {
		return models.OrderOutcome{}, err
	}
	if asset.IsDelisted {
		return models.Rejected(fmt.Sprintf("%s is delisted", intent.Symbol), ts), nil
	}

	// Leverage must be in place before the order reaches the book.
	if intent.Leverage > 0 {
		if asset.Spot {
			return models.Rejected("leverage is not supported for spot markets", ts), nil
		}
		if err := g.updateLeverage(ctx, asset, intent.Leverage); err != nil {
			return models.OrderOutcome{}, err
		}
	}

	var order orderWire
	switch {
	case intent.LimitPrice != nil:
		order, err = g.limitOrder(intent, asset)
	case intent.ReduceOnly:
		order, err = g.closeOrder(ctx, intent, asset, price)
	default:
		order, err = g.marketOrder(intent, asset, price)
	}
	if err != nil {
		return models.OrderOutcome{}, err
	}
	if order.Size == "0" {
		return models.Rejected(fmt.Sprintf("quantity %s rounds to zero at %d size decimals",
			intent.Quantity, asset.SzDecimals), ts), nil
	}

	env, err := g.client.Exchange(ctx, newOrderAction(order))
	if err != nil {
		return models.OrderOutcome{}, err
	}
	return normalizeOrderResponse(env, ts), nil
}

// submittedLimit is the limit price after tick rounding.
func submittedLimit(intent models.OrderIntent) decimal.Decimal {
	px := *intent.LimitPrice
	if intent.TickSize != nil {
		px = roundToTick(px, *intent.TickSize)
	}
	return px
}

func (g *OrderGateway) limitOrder(intent models.OrderIntent, asset AssetInfo) (orderWire, error) {
	px := submittedLimit(intent)
	return orderWire{
		Asset:      asset.ID(),
		IsBuy:      intent.Side.IsBuy(),
		LimitPx:    formatWire(px),
		Size:       formatWire(roundSize(intent.Quantity, asset.SzDecimals)),
		ReduceOnly: intent.ReduceOnly,
		OrderType:  orderTypeWire{Limit: limitWire{Tif: tifWire(intent.TimeInForce)}},
		Cloid:      newCloid(),
	}, nil
}

// marketOrder is an IOC limit at mid adjusted by the slippage tolerance.
func (g *OrderGateway) marketOrder(intent models.OrderIntent, asset AssetInfo, mid decimal.Decimal) (orderWire, error) {
	isBuy := intent.Side.IsBuy()
	px := slippagePrice(mid, isBuy, intent.EffectiveSlippage(), asset)
	return orderWire{
		Asset:     asset.ID(),
		IsBuy:     isBuy,
		LimitPx:   formatWire(px),
		Size:      formatWire(roundSize(intent.Quantity, asset.SzDecimals)),
		OrderType: orderTypeWire{Limit: limitWire{Tif: string(models.TimeInForceIoc)}},
		Cloid:     newCloid(),
	}, nil
}

// closeOrder reduces the current position: the opposite side of the
// position, sized to at most the position.
func (g *OrderGateway) closeOrder(ctx context.Context, intent models.OrderIntent, asset AssetInfo, mid decimal.Decimal) (orderWire, error) {
	if asset.Spot {
		return orderWire{}, fmt.Errorf("%w: reduce-only market orders need a perp position, %s is spot", ErrNoPosition, intent.Symbol)
	}
	szi, err := g.positionSize(ctx, intent.Symbol)
	if err != nil {
		return orderWire{}, err
	}
	if szi.IsZero() {
		return orderWire{}, fmt.Errorf("%w for %s", ErrNoPosition, intent.Symbol)
	}

	isBuy := szi.IsNegative()
	qty := decimal.Min(intent.Quantity, szi.Abs())
	px := slippagePrice(mid, isBuy, intent.EffectiveSlippage(), asset)

	if isBuy != intent.Side.IsBuy() {
		g.logger.Warn("Close side follows the open position",
			zap.String("symbol", intent.Symbol),
			zap.String("requested", string(intent.Side)),
			zap.String("position", szi.String()))
	}

	return orderWire{
		Asset:      asset.ID(),
		IsBuy:      isBuy,
		LimitPx:    formatWire(px),
		Size:       formatWire(roundSize(qty, asset.SzDecimals)),
		ReduceOnly: true,
		OrderType:  orderTypeWire{Limit: limitWire{Tif: string(models.TimeInForceIoc)}},
		Cloid:      newCloid(),
	}, nil
}

func (g *OrderGateway) positionSize(ctx context.Context, symbol string) (decimal.Decimal, error) {
	state, err := fetchClearinghouseState(ctx, g.client)
	if err != nil {
		return decimal.Zero, err
	}
	for _, ap := range state.AssetPositions {
		if ap.Position.Coin == symbol && ap.Position.Szi.Abs().GreaterThan(positionDust) {
			return ap.Position.Szi, nil
		}
	}
	return decimal.Zero, nil
}

// updateLeverage sets cross leverage for asset. Any refusal is a hard error.
func (g *OrderGateway) updateLeverage(ctx context.Context, asset AssetInfo, leverage int) error {
	env, err := g.client.Exchange(ctx, newUpdateLeverageAction(asset.ID(), leverage))
	if err != nil {
		return fmt.Errorf("failed to update leverage: %w", err)
	}
	if !env.OK() {
		return fmt.Errorf("%w: %s", ErrLeverageRejected, env.ErrorMessage())
	}
	g.logger.Info("Leverage updated",
		zap.String("symbol", asset.Symbol),
		zap.Int("leverage", leverage))
	return nil
}

// Cancel cancels order oid on symbol. There is no soft rejection: anything
// but success is an error.
func (g *OrderGateway) Cancel(ctx context.Context, symbol string, oid uint64) error {
	asset, err := g.assets.Lookup(ctx, symbol)
	if err != nil {
		return err
	}

	env, err := g.client.Exchange(ctx, newCancelAction(asset.ID(), oid))
	if err != nil {
		return fmt.Errorf("cancel request failed: %w", err)
	}
	if !env.OK() {
		return fmt.Errorf("%w: %s", ErrCancelRejected, env.ErrorMessage())
	}
	if msg, failed := firstStatusError(env); failed {
		return fmt.Errorf("%w: %s", ErrCancelRejected, msg)
	}

	g.logger.Info("Order cancelled",
		zap.String("symbol", symbol),
		zap.Uint64("oid", oid))
	return nil
}
