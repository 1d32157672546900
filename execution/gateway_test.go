package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hyperliquid-trader/config"
	"hyperliquid-trader/models"
	"hyperliquid-trader/risk"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMetaJSON = `{"universe":[
	{"name":"BTC","szDecimals":5,"maxLeverage":50},
	{"name":"ETH","szDecimals":4,"maxLeverage":50},
	{"name":"OLD","szDecimals":2,"maxLeverage":3,"isDelisted":true}
]}`

const testSpotMetaJSON = `{"tokens":[
	{"name":"USDC","szDecimals":8,"weiDecimals":8,"index":0,"tokenId":"0x6d1e7cde53ba9467b783cb7c530ce054"},
	{"name":"PURR","szDecimals":0,"weiDecimals":5,"index":1,"tokenId":"0xc1fb593aeffbeb02f85e0308e9956a90"}
],"universe":[{"name":"PURR/USDC","tokens":[1,0],"index":0}]}`

type capturedAction struct {
	Action       map[string]interface{}
	Nonce        uint64
	Signature    Signature
	VaultAddress *string
}

// fakeVenue is an in-process stand-in for the /info and /exchange endpoints.
type fakeVenue struct {
	mu            sync.Mutex
	mids          map[string]string
	clearinghouse string
	replies       map[string]string
	actions       []capturedAction
	infoTypes     []string
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		mids:          map[string]string{"BTC": "50000", "ETH": "3000"},
		clearinghouse: `{"marginSummary":{"accountValue":"1000"},"withdrawable":"900","assetPositions":[]}`,
		replies:       map[string]string{},
	}
}

func (f *fakeVenue) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		typ, _ := req["type"].(string)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.infoTypes = append(f.infoTypes, typ)

		w.Header().Set("Content-Type", "application/json")
		switch typ {
		case "meta":
			_, _ = w.Write([]byte(testMetaJSON))
		case "spotMeta":
			_, _ = w.Write([]byte(testSpotMetaJSON))
		case "allMids":
			_ = json.NewEncoder(w).Encode(f.mids)
		case "clearinghouseState":
			_, _ = w.Write([]byte(f.clearinghouse))
		default:
			http.Error(w, "unknown info type", http.StatusUnprocessableEntity)
		}
	})
	mux.HandleFunc("/exchange", func(w http.ResponseWriter, r *http.Request) {
		var req capturedAction
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		typ, _ := req.Action["type"].(string)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.actions = append(f.actions, req)

		reply, ok := f.replies[typ]
		if !ok {
			reply = `{"status":"ok","response":{"type":"default"}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	})
	return mux
}

func (f *fakeVenue) actionTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.actions))
	for _, a := range f.actions {
		out = append(out, a.Action["type"].(string))
	}
	return out
}

func (f *fakeVenue) lastOrder(t *testing.T) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.actions)
	orders := f.actions[len(f.actions)-1].Action["orders"].([]interface{})
	require.Len(t, orders, 1)
	return orders[0].(map[string]interface{})
}

func newTestGateway(t *testing.T, venue *fakeVenue) *OrderGateway {
	t.Helper()
	srv := httptest.NewServer(venue.handler())
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.PrivateKeyHex = testPrivateKey
	cfg.Timeout = 5 * time.Second
	cfg.RetryCount = 0

	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)

	g := NewOrderGateway(client, risk.NewPolicy(config.DefaultRiskLimits(), nil), nil, zap.NewNop())
	g.now = func() time.Time { return time.Unix(1700000000, 0) }
	return g
}

func limit(symbol string, side models.Side, qty, px string, leverage int) models.OrderIntent {
	p := decimal.RequireFromString(px)
	return models.OrderIntent{
		Symbol:      symbol,
		Side:        side,
		Quantity:    decimal.RequireFromString(qty),
		LimitPrice:  &p,
		Leverage:    leverage,
		TimeInForce: models.TimeInForceGtc,
	}
}

func market(symbol string, side models.Side, qty string) models.OrderIntent {
	return models.OrderIntent{
		Symbol:      symbol,
		Side:        side,
		Quantity:    decimal.RequireFromString(qty),
		TimeInForce: models.TimeInForceGtc,
	}
}

const restingReply = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":77}}]}}}`

func TestPlacePolicyRejectionMakesNoCalls(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), limit("BTC", models.SideBuy, "0.1", "50000", 11))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Equal(t, models.OutcomeError, out.Status)
	assert.Contains(t, out.Reason, "11x")
	assert.Contains(t, out.Reason, "10x")
	assert.Equal(t, int64(1700000000), out.Timestamp.Unix())

	assert.Empty(t, venue.actionTypes())
	assert.Empty(t, venue.infoTypes)
}

func TestPlaceInvalidIntentIsRejected(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), limit("BTC", models.SideBuy, "0", "50000", 0))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Empty(t, venue.actionTypes())
}

func TestPlaceLimitResting(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = restingReply
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), limit("BTC", models.SideBuy, "0.1", "50000", 0))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeResting, out.Kind)
	assert.Equal(t, uint64(77), out.OrderID)

	assert.Equal(t, []string{"order"}, venue.actionTypes())
	order := venue.lastOrder(t)
	assert.Equal(t, float64(0), order["a"])
	assert.Equal(t, true, order["b"])
	assert.Equal(t, "50000", order["p"])
	assert.Equal(t, "0.1", order["s"])
	assert.Equal(t, false, order["r"])
	assert.Equal(t, map[string]interface{}{"limit": map[string]interface{}{"tif": "Gtc"}}, order["t"])
	assert.Len(t, order["c"], 34)

	venue.mu.Lock()
	sig := venue.actions[0].Signature
	venue.mu.Unlock()
	assert.NotEmpty(t, sig.R)
	assert.NotEmpty(t, sig.S)
}

func TestPlaceLimitRoundsToTick(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = restingReply
	g := newTestGateway(t, venue)

	in := limit("ETH", models.SideSell, "1", "3000.37", 0)
	tick := decimal.RequireFromString("0.5")
	in.TickSize = &tick
	in.TimeInForce = "alo"

	_, err := g.Place(context.Background(), in)
	require.NoError(t, err)
	order := venue.lastOrder(t)
	assert.Equal(t, "3000.5", order["p"])
	assert.Equal(t, false, order["b"])
	assert.Equal(t, map[string]interface{}{"limit": map[string]interface{}{"tif": "Alo"}}, order["t"])
}

func TestPlaceNotionalUsesRoundedLimit(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = restingReply
	g := newTestGateway(t, venue)

	// 0.2 @ 49999 is under the per-order limit; rounded to a tick of 7 it is 50001.
	in := limit("BTC", models.SideBuy, "0.2", "49999", 0)
	tick := decimal.RequireFromString("7")
	in.TickSize = &tick

	out, err := g.Place(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Contains(t, out.Reason, "10000.20")
	assert.Empty(t, venue.actionTypes())
}

func TestPlaceUpdatesLeverageFirst(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = restingReply
	g := newTestGateway(t, venue)

	_, err := g.Place(context.Background(), limit("ETH", models.SideBuy, "2", "3000", 8))
	require.NoError(t, err)
	assert.Equal(t, []string{"updateLeverage", "order"}, venue.actionTypes())

	venue.mu.Lock()
	lev := venue.actions[0]
	order := venue.actions[1]
	venue.mu.Unlock()
	assert.Equal(t, float64(1), lev.Action["asset"])
	assert.Equal(t, float64(8), lev.Action["leverage"])
	assert.Equal(t, true, lev.Action["isCross"])
	assert.Greater(t, order.Nonce, lev.Nonce)
}

func TestPlaceLeverageRejectionIsHardError(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["updateLeverage"] = `{"status":"err","response":"Cannot switch leverage type with open position."}`
	g := newTestGateway(t, venue)

	_, err := g.Place(context.Background(), limit("ETH", models.SideBuy, "2", "3000", 8))
	require.ErrorIs(t, err, ErrLeverageRejected)
	assert.Contains(t, err.Error(), "open position")
	assert.Equal(t, []string{"updateLeverage"}, venue.actionTypes())
}

func TestPlaceMarketUsesSlippage(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"2","avgPx":"3001.5","oid":9}}]}}}`
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), market("ETH", models.SideBuy, "2"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFilled, out.Kind)
	assert.Equal(t, "2", out.FilledQty.String())
	require.NotNil(t, out.AvgPrice)
	assert.Equal(t, "3001.5", out.AvgPrice.String())

	order := venue.lastOrder(t)
	assert.Equal(t, "3150", order["p"])
	assert.Equal(t, map[string]interface{}{"limit": map[string]interface{}{"tif": "Ioc"}}, order["t"])

	slip := decimal.RequireFromString("0.01")
	in := market("ETH", models.SideSell, "2")
	in.Slippage = &slip
	_, err = g.Place(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2970", venue.lastOrder(t)["p"])
}

func TestPlaceMarketNotionalUsesMid(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	// 4 * 3000 = 12000 exceeds the 10000 per-order ceiling.
	out, err := g.Place(context.Background(), market("ETH", models.SideBuy, "4"))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Contains(t, out.Reason, "per-order limit")
	assert.Empty(t, venue.actionTypes())
}

func TestPlaceMarketWithoutReferencePrice(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), market("SOL", models.SideBuy, "1"))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Contains(t, out.Reason, "no reference price")
}

func TestPlaceEnvelopeErrorIsRejected(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = `{"status":"err","response":"Insufficient margin to place order."}`
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), limit("BTC", models.SideBuy, "0.1", "50000", 0))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Equal(t, "Insufficient margin to place order.", out.Reason)
}

func TestPlaceSizeRoundsToZero(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), limit("ETH", models.SideBuy, "0.00001", "3000", 0))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Contains(t, out.Reason, "rounds to zero")
	assert.Empty(t, venue.actionTypes())
}

func TestPlaceUnknownAssetIsHardError(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	_, err := g.Place(context.Background(), limit("NOPE", models.SideBuy, "1", "1", 0))
	require.ErrorIs(t, err, ErrUnknownAsset)
}

func TestPlaceDelistedAsset(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	out, err := g.Place(context.Background(), limit("OLD", models.SideBuy, "1", "1", 0))
	require.NoError(t, err)
	assert.True(t, out.IsRejected())
	assert.Contains(t, out.Reason, "delisted")
}

func TestPlaceSpotLimit(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["order"] = restingReply
	g := newTestGateway(t, venue)

	_, err := g.Place(context.Background(), limit("PURR/USDC", models.SideBuy, "100", "0.2", 0))
	require.NoError(t, err)
	order := venue.lastOrder(t)
	assert.Equal(t, float64(10000), order["a"])
	assert.Equal(t, "100", order["s"])
}

func TestPlaceCloseFlattensPosition(t *testing.T) {
	venue := newFakeVenue()
	venue.clearinghouse = `{"marginSummary":{"accountValue":"1000"},"withdrawable":"900","assetPositions":[
		{"position":{"coin":"ETH","szi":"-0.5","entryPx":"3100","positionValue":"1500","unrealizedPnl":"50","leverage":{"type":"cross","value":5}},"type":"oneWay"}
	]}`
	venue.replies["order"] = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.5","avgPx":"3000","oid":10}}]}}}`
	g := newTestGateway(t, venue)

	in := market("ETH", models.SideBuy, "1")
	in.ReduceOnly = true
	out, err := g.Place(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFilled, out.Kind)

	order := venue.lastOrder(t)
	assert.Equal(t, true, order["b"])
	assert.Equal(t, "0.5", order["s"])
	assert.Equal(t, true, order["r"])
	assert.Equal(t, "3150", order["p"])
}

func TestPlaceCloseWithoutPosition(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)

	in := market("ETH", models.SideSell, "1")
	in.ReduceOnly = true
	_, err := g.Place(context.Background(), in)
	require.ErrorIs(t, err, ErrNoPosition)
	assert.Empty(t, venue.actionTypes())
}

func TestCancel(t *testing.T) {
	venue := newFakeVenue()
	venue.replies["cancel"] = `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`
	g := newTestGateway(t, venue)

	require.NoError(t, g.Cancel(context.Background(), "ETH", 12345))
	venue.mu.Lock()
	cancels := venue.actions[0].Action["cancels"].([]interface{})
	venue.mu.Unlock()
	assert.Equal(t, map[string]interface{}{"a": float64(1), "o": float64(12345)}, cancels[0])
}

func TestCancelFailuresAreErrors(t *testing.T) {
	replies := []string{
		`{"status":"ok","response":{"type":"cancel","data":{"statuses":[{"error":"Order was never placed, already canceled, or filled."}]}}}`,
		`{"status":"err","response":"Invalid nonce"}`,
	}
	for _, reply := range replies {
		venue := newFakeVenue()
		venue.replies["cancel"] = reply
		g := newTestGateway(t, venue)

		err := g.Cancel(context.Background(), "ETH", 1)
		require.ErrorIs(t, err, ErrCancelRejected, reply)
	}
}

func TestNonceIsMonotonic(t *testing.T) {
	venue := newFakeVenue()
	g := newTestGateway(t, venue)
	g.client.now = func() time.Time { return time.UnixMilli(1000) }

	a := g.client.nextNonce()
	b := g.client.nextNonce()
	assert.Equal(t, uint64(1000), a)
	assert.Equal(t, uint64(1001), b)
}
