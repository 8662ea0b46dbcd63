package feed

import (
	"context"

	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// Dispatcher
//
// The explicit fan-out contract between the single ingestion loop and its
// consumers (hub, aggregator, anomaly detector). Each consumer gets its own
// bounded queue drained by an independent goroutine, so a slow consumer can
// never stall the socket read path.
//
// Backpressure policy: drop-oldest. When a queue is full the oldest queued
// event is discarded to make room, keeping consumers on the freshest data.
// Drops are counted per consumer.
// -----------------------------------------------------------------------------

type consumerQueue struct {
	name string
	ch   chan models.MMarketEvent
}

type Dispatcher struct {
	Logger  *logger.Logger
	Metrics *instrumentation.Metrics

	queueSize int
	consumers []consumerQueue
}

// -----------------------------------------------------------------------------

func NewDispatcher(queueSize int, log *logger.Logger, metrics *instrumentation.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		Logger:    log,
		Metrics:   metrics,
		queueSize: queueSize,
	}
}

// -----------------------------------------------------------------------------

// Register adds a named consumer and returns its queue. All registrations
// must happen before Run starts.
func (d *Dispatcher) Register(name string) <-chan models.MMarketEvent {
	queue := consumerQueue{
		name: name,
		ch:   make(chan models.MMarketEvent, d.queueSize),
	}
	d.consumers = append(d.consumers, queue)
	return queue.ch
}

// -----------------------------------------------------------------------------

// Run forwards every inbound event to all consumer queues until the input
// channel closes or the context is cancelled, then closes the queues.
func (d *Dispatcher) Run(ctx context.Context, in <-chan models.MMarketEvent) {
	defer func() {
		for _, c := range d.consumers {
			close(c.ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-in:
			if !ok {
				return
			}
			for _, c := range d.consumers {
				d.offer(c, event)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// offer enqueues without ever blocking: on a full queue it evicts the oldest
// entry, then retries once.
func (d *Dispatcher) offer(c consumerQueue, event models.MMarketEvent) {
	select {
	case c.ch <- event:
		return
	default:
	}

	// Queue full: evict the oldest event, then try again.
	select {
	case <-c.ch:
		d.Metrics.QueueDropsTotal.WithLabelValues(c.name).Inc()
	default:
	}

	select {
	case c.ch <- event:
	default:
		// Lost the race to a concurrent drain; count the incoming event
		// as the dropped one instead.
		d.Metrics.QueueDropsTotal.WithLabelValues(c.name).Inc()
	}
}
