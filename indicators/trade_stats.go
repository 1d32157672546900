package indicators

import (
	"math"
	"sync"

	"hyperliquid-trader/models"
)

// DefaultStatsPeriod is the window length used for stream sessions.
const DefaultStatsPeriod = 20

// TradeSnapshot is a point-in-time view of TradeStats. High and Low cover the
// whole session; the Window fields cover the last Window trades.
type TradeSnapshot struct {
	Trades     int     `json:"trades"`
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`
	Notional   float64 `json:"notional"`
	VWAP       float64 `json:"vwap"`
	Last       float64 `json:"last"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Window     int     `json:"window"`
	WindowHigh float64 `json:"window_high"`
	WindowLow  float64 `json:"window_low"`
	Volatility float64 `json:"volatility"`
	SMA        float64 `json:"sma"`
	SMAReady   bool    `json:"sma_ready"`
	EMA        float64 `json:"ema"`
	EMAReady   bool    `json:"ema_ready"`
}

// TradeStats accumulates volume and price statistics over a trade feed.
type TradeStats struct {
	mu sync.Mutex

	prices *RollingWindow
	sma    *SMA
	ema    *EMA

	trades     int
	buyVolume  float64
	sellVolume float64
	notional   float64
	last       float64
	high       float64
	low        float64
}

func NewTradeStats(period int) *TradeStats {
	if period < 1 {
		period = DefaultStatsPeriod
	}
	return &TradeStats{
		prices: NewRollingWindow(period),
		sma:    NewSMA(period),
		ema:    NewEMA(period),
		high:   math.Inf(-1),
		low:    math.Inf(1),
	}
}

func (s *TradeStats) Add(t models.TradeEvent) {
	price := t.Price.InexactFloat64()
	size := t.Size.InexactFloat64()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades++
	if t.Side == models.SideBuy {
		s.buyVolume += size
	} else {
		s.sellVolume += size
	}
	s.notional += price * size
	s.last = price
	s.high = math.Max(s.high, price)
	s.low = math.Min(s.low, price)

	s.prices.Add(price)
	s.sma.Update(price)
	s.ema.Update(price)
}

func (s *TradeStats) Snapshot() TradeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := TradeSnapshot{
		Trades:     s.trades,
		BuyVolume:  s.buyVolume,
		SellVolume: s.sellVolume,
		Notional:   s.notional,
		Last:       s.last,
	}
	if s.trades == 0 {
		return snap
	}

	snap.High = s.high
	snap.Low = s.low
	if volume := s.buyVolume + s.sellVolume; volume > 0 {
		snap.VWAP = s.notional / volume
	}
	snap.Window = s.prices.Count()
	snap.WindowHigh, snap.WindowLow = s.prices.Range()
	snap.Volatility = s.prices.StdDev()
	snap.SMA, snap.SMAReady = s.sma.Value()
	snap.EMA, snap.EMAReady = s.ema.Value()
	return snap
}
