package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// feedServer serves a fixed batch of frames per connection, then closes it.
type feedServer struct {
	srv         *httptest.Server
	connections atomic.Int64
	frames      []string
}

func newFeedServer(t *testing.T, frames []string) *feedServer {
	t.Helper()

	fs := &feedServer{frames: frames}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		fs.connections.Add(1)
		for _, frame := range fs.frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Returning closes the socket, forcing the client to redial.
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

// -----------------------------------------------------------------------------

func newTestSource(baseURL string) *BinanceSource {
	cfg := models.MFeedConfig{
		WSBaseURL:             baseURL,
		Symbols:               []string{"BTCUSDT", "ETHUSDT"},
		ConnectTimeoutSeconds: 2,
		ReconnectDelaySeconds: 0, // immediate redial keeps the tests fast
		MaxReconnectAttempts:  3,
	}
	return NewBinanceSource(cfg, logger.NewLogger("ERROR", "test"), instrumentation.NewTestMetrics())
}

func collect(t *testing.T, out <-chan models.MMarketEvent, n int) []models.MMarketEvent {
	t.Helper()
	events := make([]models.MMarketEvent, 0, n)
	deadline := time.After(5 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-out:
			if !ok {
				t.Fatalf("output closed after %d of %d events", len(events), n)
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

const testTickerFrame = `{"stream":"btcusdt@ticker","data":{"E":1755000000123,"s":"BTCUSDT","c":"50000.0","P":"1.5","v":"100"}}`
const testTradeFrame = `{"stream":"ethusdt@trade","data":{"s":"ETHUSDT","p":"3000.0","q":"2.5","m":false,"T":1755000000456}}`

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestBinanceSource_StreamURL(t *testing.T) {
	s := newTestSource("wss://example.test:9443/")

	url := s.streamURL()
	assert.Equal(t, "wss://example.test:9443/stream?streams=btcusdt@ticker/btcusdt@trade/ethusdt@ticker/ethusdt@trade", url)
}

// -----------------------------------------------------------------------------

// Ticker and trade frames come out demultiplexed on one channel.
func TestBinanceSource_ReadsAndDemuxes(t *testing.T) {
	fs := newFeedServer(t, []string{testTickerFrame, testTradeFrame})
	s := newTestSource(fs.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.MMarketEvent, 16)

	var wg sync.WaitGroup
	require.NoError(t, s.Start(ctx, out, &wg))

	events := collect(t, out, 2)

	assert.Equal(t, models.EventTypeTicker, events[0].Type)
	assert.Equal(t, "BTCUSDT", events[0].Symbol())
	assert.Equal(t, models.EventTypeTrade, events[1].Type)
	assert.Equal(t, "ETHUSDT", events[1].Symbol())

	cancel()
	s.Stop()
	wg.Wait()
}

// -----------------------------------------------------------------------------

// A dropped connection is redialed and the output continues seamlessly.
func TestBinanceSource_ReconnectsAfterDrop(t *testing.T) {
	fs := newFeedServer(t, []string{testTickerFrame})
	s := newTestSource(fs.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.MMarketEvent, 16)

	var wg sync.WaitGroup
	require.NoError(t, s.Start(ctx, out, &wg))

	// One frame per connection: three events prove at least three dials.
	collect(t, out, 3)
	assert.GreaterOrEqual(t, fs.connections.Load(), int64(3))
	assert.True(t, s.Healthy())

	cancel()
	s.Stop()
	wg.Wait()
}

// -----------------------------------------------------------------------------

// Malformed frames are skipped without killing the connection.
func TestBinanceSource_SkipsMalformedFrames(t *testing.T) {
	fs := newFeedServer(t, []string{
		`{"stream":"btcusdt@ticker","data":{"E":1,"s":"BTCUSDT","c":"not-a-price","v":"1"}}`,
		`{"stream":"btcusdt@depth","data":{}}`,
		testTickerFrame,
	})
	s := newTestSource(fs.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.MMarketEvent, 16)

	var wg sync.WaitGroup
	require.NoError(t, s.Start(ctx, out, &wg))

	events := collect(t, out, 1)
	assert.Equal(t, 50000.0, events[0].Tick.Price)

	cancel()
	s.Stop()
	wg.Wait()
}

// -----------------------------------------------------------------------------

// An unreachable upstream degrades health after the attempt budget.
func TestBinanceSource_DegradedAfterFailedAttempts(t *testing.T) {
	// Port 1 refuses connections.
	s := newTestSource("ws://127.0.0.1:1")

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.MMarketEvent, 1)

	var wg sync.WaitGroup
	require.NoError(t, s.Start(ctx, out, &wg))

	require.Eventually(t, func() bool {
		return !s.Healthy()
	}, 5*time.Second, 10*time.Millisecond, "health must degrade after repeated failures")

	cancel()
	s.Stop()
	wg.Wait()

	_, open := <-out
	assert.False(t, open, "output must close when the source stops")
}

// -----------------------------------------------------------------------------

func TestBinanceSource_StartTwice(t *testing.T) {
	fs := newFeedServer(t, nil)
	s := newTestSource(fs.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.MMarketEvent, 1)

	var wg sync.WaitGroup
	require.NoError(t, s.Start(ctx, out, &wg))
	assert.Error(t, s.Start(ctx, out, &wg))

	cancel()
	s.Stop()
	wg.Wait()
}
