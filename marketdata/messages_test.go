package marketdata

import (
	"testing"

	"hyperliquid-trader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tradesFrame = `{"channel":"trades","data":[
	{"coin":"ETH","side":"B","px":"3000.5","sz":"0.25","time":1700000000123,"hash":"0xabcdef0123456789","tid":42,"users":["0xbuyer","0xseller"]},
	{"coin":"ETH","side":"A","px":"3000.4","sz":"1","time":1700000000456,"hash":"0x01","tid":43,"users":["0xb","0xs"]}
]}`

func TestParseFrameTrades(t *testing.T) {
	frame := ParseFrame([]byte(tradesFrame))
	require.Equal(t, ChannelTrades, frame.Channel)
	require.Len(t, frame.Trades, 2)

	first := frame.Trades[0]
	assert.Equal(t, "ETH", first.Symbol)
	assert.Equal(t, models.SideBuy, first.Side)
	assert.Equal(t, "3000.5", first.Price.String())
	assert.Equal(t, "0.25", first.Size.String())
	assert.Equal(t, int64(1700000000123), first.Time.UnixMilli())
	assert.Equal(t, uint64(42), first.TradeID)
	assert.Equal(t, "0xbuyer", first.Buyer)
	assert.Equal(t, "0xseller", first.Seller)
	assert.Equal(t, "0xabcdef...", first.ShortHash())

	assert.Equal(t, models.SideSell, frame.Trades[1].Side)
}

func TestParseFrameChannels(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Channel
	}{
		{"subscription response", `{"channel":"subscriptionResponse","data":{"method":"subscribe"}}`, ChannelSubscriptionResponse},
		{"pong", `{"channel":"pong"}`, ChannelPong},
		{"other channel", `{"channel":"l2Book","data":{}}`, ChannelUnknown},
		{"not json", `hello`, ChannelUnknown},
		{"no channel", `{}`, ChannelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := ParseFrame([]byte(tt.raw))
			assert.Equal(t, tt.want, frame.Channel)
			assert.Empty(t, frame.Trades)
		})
	}
}

func TestParseFrameSkipsBadTrades(t *testing.T) {
	frame := ParseFrame([]byte(`{"channel":"trades","data":[
		{"coin":"BTC","side":"B","px":"abc","sz":"1","time":1,"tid":1},
		{"coin":"BTC","side":"B","px":"100","sz":"2","time":2,"tid":2}
	]}`))
	require.Equal(t, ChannelTrades, frame.Channel)
	require.Len(t, frame.Trades, 1)
	assert.Equal(t, uint64(2), frame.Trades[0].TradeID)

	frame = ParseFrame([]byte(`{"channel":"trades","data":{"unexpected":true}}`))
	assert.Equal(t, ChannelTrades, frame.Channel)
	assert.Empty(t, frame.Trades)
}

func TestSubscriptionMessages(t *testing.T) {
	data, err := json.Marshal(subscribeMessage("BTC"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"subscribe","subscription":{"type":"trades","coin":"BTC"}}`, string(data))

	data, err = json.Marshal(unsubscribeMessage("BTC"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"unsubscribe","subscription":{"type":"trades","coin":"BTC"}}`, string(data))

	data, err = json.Marshal(pingMessage)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"ping"}`, string(data))
}
