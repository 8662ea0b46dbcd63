package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Server
//
// HTTP surface of the core: the /ws subscriber endpoint plus the small REST
// set the original dashboard consumes, and the Prometheus scrape endpoint.
// -----------------------------------------------------------------------------

type Server struct {
	Config *models.MConfig
	Logger *logger.Logger
	Hub    *Hub
	Cache  interfaces.ICache

	// FeedHealthy reports the upstream feed state for /api/health.
	FeedHealthy func() bool

	engine  *gin.Engine
	httpSrv *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, hub *Hub, cache interfaces.ICache, feedHealthy func() bool, log *logger.Logger) *Server {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:      cfg,
		Logger:      log,
		Hub:         hub,
		Cache:       cache,
		FeedHealthy: feedHealthy,
		engine:      gin.New(),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/cryptos", s.getCryptos)
	s.engine.GET("/api/prices/:symbol", s.getPrice)

	// Prometheus scrape endpoint
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop drains the HTTP server and disconnects every subscriber.
func (s *Server) Stop(ctx context.Context) error {
	s.Hub.CloseAll()
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	status := "healthy"
	if s.FeedHealthy != nil && !s.FeedHealthy() {
		status = "degraded"
	}

	c.JSON(200, gin.H{
		"status":        status,
		"websocket":     "active",
		"connections":   s.Hub.SubscriberCount(),
		"latest_update": s.Hub.LastEventTime(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getCryptos(c *gin.Context) {
	symbols := s.Config.Feed.Symbols
	c.JSON(200, gin.H{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getPrice(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if !s.Hub.IsTracked(symbol) {
		c.JSON(404, gin.H{"error": "Symbol not found"})
		return
	}
	if s.Cache == nil {
		c.JSON(503, gin.H{"error": "price cache disabled"})
		return
	}

	tick, err := s.Cache.GetLatestTick(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(404, gin.H{"error": "No price available yet"})
		return
	}
	c.JSON(200, tick)
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
		// Buffered channel so routing never blocks on a single client
		send: make(chan models.MOutboundFrame, sendBufferSize),
		done: make(chan struct{}),
	}

	s.Hub.Connect(client)

	// Connection confirmation, mirroring the subscriber protocol.
	client.Send(models.MOutboundFrame{
		Type:      models.FrameTypeConnection,
		Status:    "connected",
		Timestamp: time.Now().UnixMilli(),
	})

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Command Handling
// -----------------------------------------------------------------------------

func (s *Server) handleClientCommand(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Debug("Ignoring unparsable client command from %s: %v", client.id, err)
		return
	}

	symbol := strings.ToUpper(cmd.Symbol)

	switch cmd.Action {
	case "subscribe":
		if !s.Hub.Subscribe(client, symbol) {
			// Untracked symbol: rejected, no delivery will ever occur.
			return
		}
		client.Send(models.MOutboundFrame{
			Type:   models.FrameTypeSubscription,
			Status: "subscribed",
			Symbol: symbol,
		})
		s.sendSnapshot(client, symbol)

	case "unsubscribe":
		s.Hub.Unsubscribe(client, symbol)
		client.Send(models.MOutboundFrame{
			Type:   models.FrameTypeSubscription,
			Status: "unsubscribed",
			Symbol: symbol,
		})
	}
}

// -----------------------------------------------------------------------------

// sendSnapshot pushes the latest cached tick so a new subscriber is not
// blank until the next update. Subscribers receive no further backlog.
func (s *Server) sendSnapshot(client *Client, symbol string) {
	if s.Cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tick, err := s.Cache.GetLatestTick(ctx, symbol)
	if err != nil {
		return
	}

	client.Send(models.MOutboundFrame{
		Type:      models.FrameTypeSnapshot,
		Symbol:    symbol,
		Tick:      tick,
		Timestamp: tick.EventTime,
	})
}
