package marketdata

import (
	"strings"
	"time"

	"hyperliquid-trader/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Channel is the "channel" tag of an inbound frame.
type Channel string

const (
	ChannelSubscriptionResponse Channel = "subscriptionResponse"
	ChannelPong                 Channel = "pong"
	ChannelTrades               Channel = "trades"
	ChannelUnknown              Channel = "unknown"
)

// Hyperliquid WebSocket message structures
type SubscriptionMessage struct {
	Method       string                 `json:"method"`
	Subscription map[string]interface{} `json:"subscription,omitempty"`
}

func subscribeMessage(symbol string) SubscriptionMessage {
	return SubscriptionMessage{
		Method:       "subscribe",
		Subscription: map[string]interface{}{"type": "trades", "coin": symbol},
	}
}

func unsubscribeMessage(symbol string) SubscriptionMessage {
	return SubscriptionMessage{
		Method:       "unsubscribe",
		Subscription: map[string]interface{}{"type": "trades", "coin": symbol},
	}
}

var pingMessage = SubscriptionMessage{Method: "ping"}

type envelope struct {
	Channel Channel             `json:"channel"`
	Data    jsoniter.RawMessage `json:"data"`
}

type tradeWire struct {
	Coin  string    `json:"coin"`
	Side  string    `json:"side"`
	Px    string    `json:"px"`
	Sz    string    `json:"sz"`
	Time  int64     `json:"time"`
	Hash  string    `json:"hash"`
	Tid   uint64    `json:"tid"`
	Users [2]string `json:"users"`
}

// Frame is a classified inbound text frame.
type Frame struct {
	Channel Channel
	Trades  []models.TradeEvent
}

// ParseFrame classifies a text frame. Frames that are not valid JSON or carry
// an unrecognised channel come back as ChannelUnknown.
func ParseFrame(data []byte) Frame {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{Channel: ChannelUnknown}
	}

	switch env.Channel {
	case ChannelSubscriptionResponse, ChannelPong:
		return Frame{Channel: env.Channel}
	case ChannelTrades:
		return Frame{Channel: ChannelTrades, Trades: parseTrades(env.Data)}
	default:
		return Frame{Channel: ChannelUnknown}
	}
}

// parseTrades drops records whose price or size is not a number.
func parseTrades(data []byte) []models.TradeEvent {
	var raw []tradeWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	trades := make([]models.TradeEvent, 0, len(raw))
	for _, w := range raw {
		if t, ok := w.toEvent(); ok {
			trades = append(trades, t)
		}
	}
	return trades
}

func (w tradeWire) toEvent() (models.TradeEvent, bool) {
	px, err := decimal.NewFromString(w.Px)
	if err != nil {
		return models.TradeEvent{}, false
	}
	sz, err := decimal.NewFromString(w.Sz)
	if err != nil {
		return models.TradeEvent{}, false
	}

	side := models.SideSell
	if strings.EqualFold(w.Side, "B") {
		side = models.SideBuy
	}

	return models.TradeEvent{
		Symbol:  w.Coin,
		Side:    side,
		Price:   px,
		Size:    sz,
		Time:    time.UnixMilli(w.Time),
		TradeID: w.Tid,
		Hash:    w.Hash,
		Buyer:   w.Users[0],
		Seller:  w.Users[1],
	}, true
}
