// Package indicators provides the rolling price window and moving averages
// behind per-session trade statistics.
package indicators

import "math"

// RollingWindow keeps the last size prices with a running sum. It is not
// safe for concurrent use; TradeStats serializes access.
type RollingWindow struct {
	values   []float64
	sum      float64
	position int
	size     int
	full     bool
}

func NewRollingWindow(size int) *RollingWindow {
	if size < 1 {
		size = 1
	}
	return &RollingWindow{
		values: make([]float64, size),
		size:   size,
	}
}

func (rw *RollingWindow) Add(value float64) {
	if rw.full {
		rw.sum -= rw.values[rw.position]
	}

	rw.values[rw.position] = value
	rw.sum += value
	rw.position = (rw.position + 1) % rw.size

	if !rw.full && rw.position == 0 {
		rw.full = true
	}
}

func (rw *RollingWindow) Count() int {
	if rw.full {
		return rw.size
	}
	return rw.position
}

func (rw *RollingWindow) IsFull() bool {
	return rw.full
}

func (rw *RollingWindow) Average() float64 {
	n := rw.Count()
	if n == 0 {
		return 0
	}
	return rw.sum / float64(n)
}

// Range returns the window's high and low, or zeros when empty.
func (rw *RollingWindow) Range() (high, low float64) {
	n := rw.Count()
	if n == 0 {
		return 0, 0
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, v := range rw.values[:n] {
		high = math.Max(high, v)
		low = math.Min(low, v)
	}
	return high, low
}

// StdDev is the population standard deviation of the window.
func (rw *RollingWindow) StdDev() float64 {
	n := rw.Count()
	if n < 2 {
		return 0
	}

	avg := rw.sum / float64(n)
	variance := 0.0
	for _, v := range rw.values[:n] {
		diff := v - avg
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(n))
}

// SMA is the simple moving average over a full window.
type SMA struct {
	window *RollingWindow
}

func NewSMA(period int) *SMA {
	return &SMA{window: NewRollingWindow(period)}
}

func (s *SMA) Update(price float64) {
	s.window.Add(price)
}

// Value reports false until period prices have been seen.
func (s *SMA) Value() (float64, bool) {
	if !s.window.IsFull() {
		return 0, false
	}
	return s.window.Average(), true
}

// EMA is an exponential moving average seeded with the first price.
type EMA struct {
	multiplier float64
	value      float64
	seeded     bool
}

func NewEMA(period int) *EMA {
	return &EMA{multiplier: 2.0 / (float64(period) + 1.0)}
}

func (e *EMA) Update(price float64) {
	if !e.seeded {
		e.value, e.seeded = price, true
		return
	}
	e.value = price*e.multiplier + e.value*(1-e.multiplier)
}

func (e *EMA) Value() (float64, bool) {
	return e.value, e.seeded
}
