package indicators

import (
	"testing"
	"time"

	"hyperliquid-trader/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindow(t *testing.T) {
	rw := NewRollingWindow(3)
	assert.Equal(t, 0.0, rw.Average())
	high, low := rw.Range()
	assert.Zero(t, high)
	assert.Zero(t, low)

	for _, v := range []float64{1, 2, 3, 4} {
		rw.Add(v)
	}

	assert.True(t, rw.IsFull())
	assert.Equal(t, 3, rw.Count())
	assert.InDelta(t, 3.0, rw.Average(), 1e-9)
	high, low = rw.Range()
	assert.Equal(t, 4.0, high)
	assert.Equal(t, 2.0, low)
}

func TestRollingWindowStdDev(t *testing.T) {
	rw := NewRollingWindow(4)
	assert.Equal(t, 0.0, rw.StdDev())
	for _, v := range []float64{2, 4, 4, 6} {
		rw.Add(v)
	}
	assert.InDelta(t, 1.41421356, rw.StdDev(), 1e-6)
}

func TestSMA(t *testing.T) {
	sma := NewSMA(2)
	sma.Update(10)
	_, ok := sma.Value()
	assert.False(t, ok)

	sma.Update(20)
	v, ok := sma.Value()
	require.True(t, ok)
	assert.InDelta(t, 15.0, v, 1e-9)
}

func TestEMA(t *testing.T) {
	ema := NewEMA(3) // multiplier 0.5
	_, ok := ema.Value()
	assert.False(t, ok)

	ema.Update(10)
	ema.Update(20)
	v, ok := ema.Value()
	require.True(t, ok)
	assert.InDelta(t, 15.0, v, 1e-9)
}

func trade(side models.Side, px, sz string) models.TradeEvent {
	return models.TradeEvent{
		Symbol: "ETH",
		Side:   side,
		Price:  decimal.RequireFromString(px),
		Size:   decimal.RequireFromString(sz),
		Time:   time.Unix(1700000000, 0),
	}
}

func TestTradeStats(t *testing.T) {
	stats := NewTradeStats(2)
	assert.Equal(t, TradeSnapshot{}, stats.Snapshot())

	stats.Add(trade(models.SideBuy, "100", "1"))
	stats.Add(trade(models.SideSell, "110", "3"))
	stats.Add(trade(models.SideBuy, "90", "1"))

	snap := stats.Snapshot()
	assert.Equal(t, 3, snap.Trades)
	assert.InDelta(t, 2.0, snap.BuyVolume, 1e-9)
	assert.InDelta(t, 3.0, snap.SellVolume, 1e-9)
	assert.InDelta(t, 520.0, snap.Notional, 1e-9)
	assert.InDelta(t, 104.0, snap.VWAP, 1e-9)
	assert.Equal(t, 90.0, snap.Last)
	assert.Equal(t, 110.0, snap.High)
	assert.Equal(t, 90.0, snap.Low)
	assert.True(t, snap.SMAReady)
	assert.InDelta(t, 100.0, snap.SMA, 1e-9)
	assert.True(t, snap.EMAReady)

	// The window holds the last two trades.
	assert.Equal(t, 2, snap.Window)
	assert.Equal(t, 110.0, snap.WindowHigh)
	assert.Equal(t, 90.0, snap.WindowLow)
	assert.InDelta(t, 10.0, snap.Volatility, 1e-9)
}

func TestTradeStatsBeforeWindowFills(t *testing.T) {
	stats := NewTradeStats(5)
	stats.Add(trade(models.SideBuy, "100", "1"))

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Window)
	assert.False(t, snap.SMAReady)
	assert.True(t, snap.EMAReady)
	assert.InDelta(t, 100.0, snap.EMA, 1e-9)
	assert.Zero(t, snap.Volatility)
}
