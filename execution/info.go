package execution

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"hyperliquid-trader/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// positionDust is the smallest position size reported as open.
var positionDust = decimal.NewFromFloat(0.0001)

// InfoService answers the read-only account and market queries.
type InfoService struct {
	client *Client
	logger *zap.Logger
}

func NewInfoService(client *Client, logger *zap.Logger) *InfoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InfoService{client: client, logger: logger}
}

// Status lists the listed perpetual markets.
func (s *InfoService) Status(ctx context.Context) (*models.StatusReport, error) {
	var raw []json.RawMessage
	if err := s.client.Info(ctx, infoRequest{Type: "metaAndAssetCtxs"}, &raw); err != nil {
		return nil, err
	}
	var meta perpMetaWire
	var ctxs []perpAssetCtxWire
	if err := splitPair(raw, &meta, &ctxs); err != nil {
		return nil, errors.Wrap(err, "failed to parse metaAndAssetCtxs")
	}

	report := &models.StatusReport{}
	for i, asset := range meta.Universe {
		if asset.IsDelisted || i >= len(ctxs) {
			continue
		}
		c := ctxs[i]
		report.Markets = append(report.Markets, models.MarketInfo{
			Symbol:       asset.Name,
			MarkPrice:    c.MarkPx,
			Volume24h:    c.DayNtlVlm,
			FundingRate:  c.Funding,
			MaxLeverage:  asset.MaxLeverage,
			OpenInterest: c.OpenInterest,
		})
	}
	report.TotalMarkets = len(report.Markets)
	return report, nil
}

func (s *InfoService) clearinghouseState(ctx context.Context) (*clearinghouseStateWire, error) {
	return fetchClearinghouseState(ctx, s.client)
}

func fetchClearinghouseState(ctx context.Context, client *Client) (*clearinghouseStateWire, error) {
	var state clearinghouseStateWire
	req := infoRequest{Type: "clearinghouseState", User: strings.ToLower(client.AccountAddress().Hex())}
	if err := client.Info(ctx, req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Balances reports margin summary and open positions.
func (s *InfoService) Balances(ctx context.Context) (*models.BalanceReport, error) {
	state, err := s.clearinghouseState(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.BalanceReport{
		AccountValue:    state.MarginSummary.AccountValue,
		Withdrawable:    state.Withdrawable,
		CrossMarginUsed: state.CrossMarginSummary.TotalMarginUsed,
	}
	for _, ap := range state.AssetPositions {
		p := ap.Position
		if p.Szi.Abs().LessThanOrEqual(positionDust) {
			continue
		}
		report.Positions = append(report.Positions, models.PositionInfo{
			Symbol:        p.Coin,
			Size:          p.Szi,
			EntryPrice:    p.EntryPx,
			Leverage:      p.Leverage.Value,
			UnrealizedPnL: p.UnrealizedPnl,
			PositionValue: p.PositionValue,
		})
	}
	return report, nil
}

// Spot lists spot tokens and pairs with their prices.
func (s *InfoService) Spot(ctx context.Context) (*models.SpotReport, error) {
	var raw []json.RawMessage
	if err := s.client.Info(ctx, infoRequest{Type: "spotMetaAndAssetCtxs"}, &raw); err != nil {
		return nil, err
	}
	var meta spotMetaWire
	var ctxs []spotAssetCtxWire
	if err := splitPair(raw, &meta, &ctxs); err != nil {
		return nil, errors.Wrap(err, "failed to parse spotMetaAndAssetCtxs")
	}

	report := &models.SpotReport{}
	for _, t := range meta.Tokens {
		report.Tokens = append(report.Tokens, models.SpotToken{
			Name:     t.Name,
			Decimals: t.SzDecimals,
			TokenID:  t.TokenID,
		})
	}

	ctxByCoin := make(map[string]spotAssetCtxWire, len(ctxs))
	for _, c := range ctxs {
		ctxByCoin[c.Coin] = c
	}
	for _, p := range meta.Universe {
		c := ctxByCoin[p.Name]
		report.Pairs = append(report.Pairs, models.SpotPair{
			Name:      p.Name,
			MarkPrice: c.MarkPx,
			MidPrice:  c.MidPx,
			Volume24h: c.DayNtlVlm,
		})
	}
	return report, nil
}

// OpenOrders lists the account's resting orders.
func (s *InfoService) OpenOrders(ctx context.Context) ([]models.OpenOrder, error) {
	var orders []openOrderWire
	req := infoRequest{Type: "openOrders", User: strings.ToLower(s.client.AccountAddress().Hex())}
	if err := s.client.Info(ctx, req, &orders); err != nil {
		return nil, err
	}

	out := make([]models.OpenOrder, 0, len(orders))
	for _, o := range orders {
		side := models.SideSell
		if o.Side == "B" {
			side = models.SideBuy
		}
		out = append(out, models.OpenOrder{
			OrderID:   o.Oid,
			Symbol:    o.Coin,
			Side:      side,
			Price:     o.LimitPx,
			Size:      o.Sz,
			Timestamp: time.UnixMilli(o.Timestamp),
		})
	}
	return out, nil
}
