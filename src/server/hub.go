package server

import (
	"sync"
	"sync/atomic"

	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// Broadcast Hub
//
// Owns all subscriber state: a forward map symbol -> subscribers and a
// reverse map subscriber -> symbols, kept mutually consistent under one
// mutex (updates are far rarer than routing reads, so a single lock is the
// simplest correct choice). Subscribers are capabilities with a stable ID;
// any delivery failure is treated as an implicit disconnect and cleaned up
// inside the same routing call.
// -----------------------------------------------------------------------------

type Hub struct {
	Logger  *logger.Logger
	Metrics *instrumentation.Metrics

	// Symbols the feed actually covers; subscriptions outside it are rejected.
	tracked map[string]struct{}

	mu          sync.RWMutex
	subscribers map[string]interfaces.ISubscriber             // id -> handle
	bySymbol    map[string]map[string]interfaces.ISubscriber // symbol -> id -> handle
	symbolsByID map[string]map[string]struct{}                // id -> subscribed symbols

	lastRouted atomic.Int64 // event time of the last routed event, epoch ms
}

// -----------------------------------------------------------------------------

func NewHub(trackedSymbols []string, log *logger.Logger, metrics *instrumentation.Metrics) *Hub {
	tracked := make(map[string]struct{}, len(trackedSymbols))
	for _, sym := range trackedSymbols {
		tracked[sym] = struct{}{}
	}

	return &Hub{
		Logger:      log,
		Metrics:     metrics,
		tracked:     tracked,
		subscribers: make(map[string]interfaces.ISubscriber),
		bySymbol:    make(map[string]map[string]interfaces.ISubscriber),
		symbolsByID: make(map[string]map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

// Connect registers a subscriber handle. It starts with no subscriptions.
func (h *Hub) Connect(sub interfaces.ISubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.ID()]; ok {
		return
	}
	h.subscribers[sub.ID()] = sub
	h.symbolsByID[sub.ID()] = make(map[string]struct{})
	h.Metrics.Subscribers.Set(float64(len(h.subscribers)))
}

// -----------------------------------------------------------------------------

// Disconnect removes a subscriber from every symbol set and closes it.
// No-op when the subscriber is unknown; safe to call twice.
func (h *Hub) Disconnect(sub interfaces.ISubscriber) {
	h.mu.Lock()
	known := h.removeLocked(sub.ID())
	h.mu.Unlock()

	if known {
		sub.Close()
	}
}

// removeLocked unregisters id from both maps. Caller holds the write lock.
// The reverse index makes this O(subscriptions) instead of a scan of every
// symbol.
func (h *Hub) removeLocked(id string) bool {
	if _, ok := h.subscribers[id]; !ok {
		return false
	}

	for sym := range h.symbolsByID[id] {
		delete(h.bySymbol[sym], id)
		if len(h.bySymbol[sym]) == 0 {
			delete(h.bySymbol, sym)
		}
	}
	delete(h.symbolsByID, id)
	delete(h.subscribers, id)
	h.Metrics.Subscribers.Set(float64(len(h.subscribers)))
	return true
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// Subscribe adds the subscriber to a symbol's set. Returns false without
// side effects when the symbol is untracked or the subscriber unknown.
func (h *Hub) Subscribe(sub interfaces.ISubscriber, symbol string) bool {
	if _, ok := h.tracked[symbol]; !ok {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.ID()]; !ok {
		return false
	}

	if h.bySymbol[symbol] == nil {
		h.bySymbol[symbol] = make(map[string]interfaces.ISubscriber)
	}
	h.bySymbol[symbol][sub.ID()] = sub
	h.symbolsByID[sub.ID()][symbol] = struct{}{}
	return true
}

// -----------------------------------------------------------------------------

// Unsubscribe removes one subscription. Unknown client or symbol is a no-op,
// and repeating the call changes nothing.
func (h *Hub) Unsubscribe(sub interfaces.ISubscriber, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.bySymbol[symbol]; ok {
		delete(set, sub.ID())
		if len(set) == 0 {
			delete(h.bySymbol, symbol)
		}
	}
	if syms, ok := h.symbolsByID[sub.ID()]; ok {
		delete(syms, symbol)
	}
}

// -----------------------------------------------------------------------------
// Routing
// -----------------------------------------------------------------------------

// Route delivers the event to every subscriber of its symbol registered
// before this call. Failed deliveries never surface to the caller: the
// failing subscribers are removed from both maps after the delivery pass,
// inside this same call.
func (h *Hub) Route(event models.MMarketEvent) {
	symbol := event.Symbol()
	if symbol == "" {
		return
	}
	h.lastRouted.Store(event.EventTime())

	h.mu.RLock()
	targets := make([]interfaces.ISubscriber, 0, len(h.bySymbol[symbol]))
	for _, sub := range h.bySymbol[symbol] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	frame := models.EventFrame(event)

	var failed []interfaces.ISubscriber
	for _, sub := range targets {
		if err := sub.Send(frame); err != nil {
			failed = append(failed, sub)
			continue
		}
		h.Metrics.DeliveriesTotal.Inc()
	}

	// Single cleanup pass after delivery; Disconnect is idempotent so a
	// concurrent disconnect of the same handle is harmless.
	for _, sub := range failed {
		h.Metrics.DeliveryFailures.Inc()
		h.Logger.Info("Removing subscriber %s after delivery failure", sub.ID())
		h.Disconnect(sub)
	}
}

// -----------------------------------------------------------------------------

// Run consumes the fan-out queue until it closes.
func (h *Hub) Run(events <-chan models.MMarketEvent) {
	for ev := range events {
		h.Route(ev)
	}
}

// -----------------------------------------------------------------------------
// Introspection
// -----------------------------------------------------------------------------

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// -----------------------------------------------------------------------------

// LastEventTime returns the event time of the last routed event (epoch ms).
func (h *Hub) LastEventTime() int64 {
	return h.lastRouted.Load()
}

// -----------------------------------------------------------------------------

// IsTracked reports whether a symbol is part of the tracked set.
func (h *Hub) IsTracked(symbol string) bool {
	_, ok := h.tracked[symbol]
	return ok
}

// -----------------------------------------------------------------------------

// CloseAll disconnects every subscriber, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]interfaces.ISubscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.Disconnect(sub)
	}
}
