// Package marketdata streams the venue's public trades channel over a single
// websocket connection.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hyperliquid-trader/indicators"
	"hyperliquid-trader/metrics"
	"hyperliquid-trader/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamConfig holds the connection and loop timing for a session.
type StreamConfig struct {
	URL               string
	PollInterval      time.Duration // bounded wait per loop iteration
	HeartbeatInterval time.Duration // ping cadence
	QuietThreshold    int           // idle cycles before the quiet-market notice
	ProgressEvery     int           // idle cycles between remaining-time notices
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	StatsPeriod       int
}

func DefaultStreamConfig(url string) StreamConfig {
	return StreamConfig{
		URL:               url,
		PollInterval:      100 * time.Millisecond,
		HeartbeatInterval: 30 * time.Second,
		QuietThreshold:    100,
		ProgressEvery:     50,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		StatsPeriod:       indicators.DefaultStatsPeriod,
	}
}

// Summary is reported once per session after cleanup.
type Summary struct {
	Symbol    string
	Elapsed   time.Duration
	Frames    int
	Trades    int
	Confirmed bool
	Exit      ExitReason
	Err       error
	Stats     indicators.TradeSnapshot
}

// Observer receives presentation callbacks from the loop goroutine.
type Observer interface {
	OnSubscribed(symbol string, duration time.Duration)
	OnConfirmed(symbol string)
	OnTrade(trade models.TradeEvent)
	OnProgress(remaining time.Duration)
	OnQuiet(idle time.Duration)
	OnSummary(summary Summary)
}

type NopObserver struct{}

func (NopObserver) OnSubscribed(string, time.Duration) {}
func (NopObserver) OnConfirmed(string)                 {}
func (NopObserver) OnTrade(models.TradeEvent)          {}
func (NopObserver) OnProgress(time.Duration)           {}
func (NopObserver) OnQuiet(time.Duration)              {}
func (NopObserver) OnSummary(Summary)                  {}

type inboundKind int

const (
	inboundData inboundKind = iota
	inboundBinary
	inboundPong
	inboundClose
	inboundError
)

type inbound struct {
	kind inboundKind
	data []byte
	err  error
}

// StreamSession runs one subscribe/receive/unsubscribe cycle per Run call.
type StreamSession struct {
	config   StreamConfig
	observer Observer
	logger   *zap.Logger
	dialer   *websocket.Dialer
	now      func() time.Time
}

func NewStreamSession(config StreamConfig, observer Observer, logger *zap.Logger) *StreamSession {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultStreamConfig(config.URL)
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if config.QuietThreshold <= 0 {
		config.QuietThreshold = defaults.QuietThreshold
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = defaults.ProgressEvery
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	return &StreamSession{
		config:   config,
		observer: observer,
		logger:   logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		now: time.Now,
	}
}

func (s *StreamSession) thresholds() Thresholds {
	return Thresholds{QuietThreshold: s.config.QuietThreshold, ProgressEvery: s.config.ProgressEvery}
}

// Run connects, subscribes to symbol's trades and receives until duration
// elapses, the remote closes, the transport fails or ctx is cancelled. Only a
// failure to connect or subscribe is returned as an error; every other exit
// produces a Summary.
func (s *StreamSession) Run(ctx context.Context, symbol string, duration time.Duration) (Summary, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to connect to %s: %w", s.config.URL, err)
	}

	state := NewStreamState(s.now())
	if err := s.write(conn, subscribeMessage(symbol)); err != nil {
		_ = conn.Close()
		return Summary{}, fmt.Errorf("failed to subscribe to %s trades: %w", symbol, err)
	}
	state, _ = state.Step(Event{Kind: EventSubscribed, At: s.now()}, s.thresholds())

	s.logger.Info("Stream subscribed",
		zap.String("symbol", symbol),
		zap.String("url", s.config.URL),
		zap.Duration("duration", duration))
	s.observer.OnSubscribed(symbol, duration)

	frames := make(chan inbound, 64)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		readLoop(conn, frames, done)
	}()

	stats := indicators.NewTradeStats(s.config.StatsPeriod)
	state, loopErr := s.receive(ctx, conn, symbol, duration, state, frames, stats)

	// Cleanup runs exactly once whatever ended the loop.
	close(done)
	if err := s.write(conn, unsubscribeMessage(symbol)); err != nil {
		s.logger.Debug("Unsubscribe not sent", zap.Error(err))
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		s.now().Add(s.config.WriteTimeout))
	_ = conn.Close()
	wg.Wait()

	state, _ = state.Step(Event{Kind: EventClosed, At: s.now()}, s.thresholds())

	summary := Summary{
		Symbol:    symbol,
		Elapsed:   state.Elapsed,
		Frames:    state.Frames,
		Trades:    state.Trades,
		Confirmed: state.Confirmed,
		Exit:      state.Exit,
		Err:       loopErr,
		Stats:     stats.Snapshot(),
	}

	fields := []zap.Field{
		zap.String("symbol", symbol),
		zap.String("exit", string(summary.Exit)),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Int("frames", summary.Frames),
		zap.Int("trades", summary.Trades),
	}
	if loopErr != nil {
		fields = append(fields, zap.Error(loopErr))
	}
	s.logger.Info("Stream session finished", fields...)

	metrics.RecordSession(string(summary.Exit))
	s.observer.OnSummary(summary)
	return summary, nil
}

// receive is the cooperative loop. Every iteration checks cancellation, the
// duration budget and the heartbeat before waiting at most one poll interval.
func (s *StreamSession) receive(
	ctx context.Context,
	conn *websocket.Conn,
	symbol string,
	duration time.Duration,
	state StreamState,
	frames <-chan inbound,
	stats *indicators.TradeStats,
) (StreamState, error) {
	th := s.thresholds()
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	for state.Active() {
		now := s.now()
		if ctx.Err() != nil {
			state, _ = state.Step(Event{Kind: EventCancelled, At: now}, th)
			break
		}
		if now.Sub(state.Started) >= duration {
			state, _ = state.Step(Event{Kind: EventDeadline, At: now}, th)
			break
		}
		if state.HeartbeatDue(now, s.config.HeartbeatInterval) {
			if err := s.write(conn, pingMessage); err != nil {
				state, _ = state.Step(Event{Kind: EventTransportError, At: now}, th)
				return state, fmt.Errorf("failed to send ping: %w", err)
			}
			s.logger.Debug("Heartbeat sent", zap.String("symbol", symbol))
			state, _ = state.Step(Event{Kind: EventHeartbeat, At: now}, th)
		}

		timer.Reset(s.config.PollInterval)
		select {
		case <-ctx.Done():

		case <-timer.C:
			var fx Effects
			state, fx = state.Step(Event{Kind: EventIdle, At: s.now()}, th)
			if fx.Progress {
				remaining := duration - state.Elapsed
				if remaining < 0 {
					remaining = 0
				}
				s.observer.OnProgress(remaining)
			}
			if fx.Quiet {
				idle := time.Duration(state.IdleCycles) * s.config.PollInterval
				s.logger.Warn("No messages received; market may be quiet",
					zap.String("symbol", symbol),
					zap.Duration("idle", idle))
				s.observer.OnQuiet(idle)
			}

		case in := <-frames:
			var err error
			state, err = s.handle(in, symbol, state, stats)
			if err != nil {
				return state, err
			}
		}
	}
	return state, nil
}

func (s *StreamSession) handle(in inbound, symbol string, state StreamState, stats *indicators.TradeStats) (StreamState, error) {
	th := s.thresholds()
	now := s.now()

	switch in.kind {
	case inboundClose:
		metrics.RecordFrame("close")
		s.logger.Info("Stream closed by remote", zap.String("symbol", symbol), zap.Error(in.err))
		state, _ = state.Step(Event{Kind: EventRemoteClose, At: now}, th)
		return state, nil

	case inboundError:
		s.logger.Warn("Stream transport error", zap.String("symbol", symbol), zap.Error(in.err))
		state, _ = state.Step(Event{Kind: EventTransportError, At: now}, th)
		return state, in.err

	case inboundPong:
		metrics.RecordFrame(string(ChannelPong))
		state, _ = state.Step(Event{Kind: EventFrame, At: now, Channel: ChannelPong}, th)
		return state, nil

	case inboundBinary:
		// The venue publishes JSON text only; binary payloads are counted, not parsed.
		metrics.RecordFrame("binary")
		state, _ = state.Step(Event{Kind: EventFrame, At: now, Channel: ChannelUnknown}, th)
		return state, nil
	}

	frame := ParseFrame(in.data)
	metrics.RecordFrame(string(frame.Channel))

	var fx Effects
	state, fx = state.Step(Event{Kind: EventFrame, At: now, Channel: frame.Channel, Trades: len(frame.Trades)}, th)
	if fx.Confirmed {
		s.logger.Info("Subscription confirmed", zap.String("symbol", symbol))
		s.observer.OnConfirmed(symbol)
	}
	for _, trade := range frame.Trades {
		stats.Add(trade)
		s.observer.OnTrade(trade)
	}
	metrics.RecordTrades(symbol, len(frame.Trades))
	return state, nil
}

func (s *StreamSession) write(conn *websocket.Conn, msg SubscriptionMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Method, err)
	}
	if err := conn.SetWriteDeadline(s.now().Add(s.config.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop forwards frames until the connection fails or done is closed.
func readLoop(conn *websocket.Conn, out chan<- inbound, done <-chan struct{}) {
	send := func(in inbound) bool {
		select {
		case out <- in:
			return true
		case <-done:
			return false
		}
	}

	conn.SetPongHandler(func(string) error {
		send(inbound{kind: inboundPong})
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			send(inbound{kind: classifyReadError(err), err: err})
			return
		}
		kind := inboundData
		if messageType == websocket.BinaryMessage {
			kind = inboundBinary
		}
		if !send(inbound{kind: kind, data: data}) {
			return
		}
	}
}

// classifyReadError separates a close frame sent by the remote from a broken
// connection. Gorilla reports an EOF without a close frame as a CloseError with
// code 1006, which never appears on the wire.
func classifyReadError(err error) inboundKind {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		return inboundClose
	}
	return inboundError
}
