package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// BinanceSource
//
// Owns one multiplexed WebSocket connection covering {symbol}@ticker and
// {symbol}@trade for every tracked symbol. On any transport or protocol
// fault it redials after a constant delay; the output channel behaves as one
// continuous stream across reconnects, with gaps accepted and not backfilled.
// -----------------------------------------------------------------------------

type BinanceSource struct {
	Config  models.MFeedConfig
	Logger  *logger.Logger
	Metrics *instrumentation.Metrics

	dialer *websocket.Dialer

	cancelFunc context.CancelFunc
	isRunning  atomic.Bool

	// Consecutive failed connection attempts; past the configured budget the
	// source reports degraded health until a connection succeeds.
	failedAttempts atomic.Int64

	connMu sync.Mutex
	conn   *websocket.Conn
}

// -----------------------------------------------------------------------------

func NewBinanceSource(cfg models.MFeedConfig, log *logger.Logger, metrics *instrumentation.Metrics) *BinanceSource {
	return &BinanceSource{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics,
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Name() string {
	return "binance"
}

// -----------------------------------------------------------------------------

// Healthy reports whether the upstream connection is within its reconnect
// budget. It flips back to true on the next successful connect.
func (s *BinanceSource) Healthy() bool {
	return s.failedAttempts.Load() < int64(s.Config.MaxReconnectAttempts)
}

// -----------------------------------------------------------------------------

// streamURL builds the combined-stream path covering every tracked symbol.
func (s *BinanceSource) streamURL() string {
	topics := make([]string, 0, len(s.Config.Symbols)*2)
	for _, sym := range s.Config.Symbols {
		lower := strings.ToLower(sym)
		topics = append(topics, lower+streamSuffixTicker, lower+streamSuffixTrade)
	}
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimRight(s.Config.WSBaseURL, "/"), strings.Join(topics, "/"))
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the read loop. Events are pushed to out; the channel is
// closed when the source stops for good.
func (s *BinanceSource) Start(ctx context.Context, out chan<- models.MMarketEvent, wg *sync.WaitGroup) error {
	if !s.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("source %s already running", s.Name())
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		defer s.isRunning.Store(false)

		for {
			select {
			case <-runCtx.Done():
				return
			default:
				s.connectAndRead(runCtx, out)
			}
		}
	}()

	return nil
}

// -----------------------------------------------------------------------------

// Stop terminates the source; equivalent to cancelling the Start context.
func (s *BinanceSource) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.closeConn()
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *BinanceSource) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// -----------------------------------------------------------------------------
// Connection loop
// -----------------------------------------------------------------------------

func (s *BinanceSource) connectAndRead(ctx context.Context, out chan<- models.MMarketEvent) {
	url := s.streamURL()

	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		failures := s.failedAttempts.Add(1)
		s.Metrics.ReconnectsTotal.Inc()
		s.Logger.Error("Failed to connect to %s (attempt %d): %v", url, failures, err)
		if !s.Healthy() {
			s.Logger.Warning("Feed degraded: %d consecutive failed connection attempts", failures)
		}

		// Constant reconnect delay, by contract not exponential.
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(s.Config.ReconnectDelaySeconds) * time.Second):
		}
		return
	}

	s.failedAttempts.Store(0)
	s.setConn(conn)
	s.Logger.Info("Connected to upstream feed (%d symbols)", len(s.Config.Symbols))

	s.readStream(ctx, conn, out)

	// Any exit from the read loop is a connection loss; redial after the
	// same constant delay unless we are shutting down.
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(s.Config.ReconnectDelaySeconds) * time.Second):
		s.Metrics.ReconnectsTotal.Inc()
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) readStream(ctx context.Context, conn *websocket.Conn, out chan<- models.MMarketEvent) {
	defer s.closeConn()

	// Unblock ReadMessage when the lifecycle context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.Logger.Warning("Upstream read error: %v", err)
			}
			return
		}

		event, err := parseMessage(raw)
		if err != nil {
			// Malformed payloads are dropped per message, never fatal.
			s.Metrics.MalformedTotal.Inc()
			s.Logger.Debug("Dropping malformed message: %v", err)
			continue
		}
		if event == nil {
			// Unrecognized stream shape, dropped silently.
			continue
		}

		s.Metrics.EventsTotal.WithLabelValues(event.Type).Inc()

		select {
		case out <- *event:
		case <-ctx.Done():
			return
		}
	}
}
