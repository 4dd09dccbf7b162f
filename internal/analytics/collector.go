package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/kafka"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
)

// Publisher delivers a batch of encoded events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events from request handlers and publishes them in
// batches, flushing when a batch fills or the flush interval elapses.
// Track never blocks; events are dropped when the buffer is full or the
// collector is closed.
type Collector struct {
	publisher     Publisher
	mu            sync.RWMutex
	closed        bool
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan any, bufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It returns immediately; the loop exits
// after a final flush when ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, kafka.Event{Key: eventKey(event), Value: event})
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				batch = c.drain(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "batch_size", c.batchSize)
}

func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. Later calls
// to Track drop their events; Close may be called more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

// flush publishes batch and returns an empty batch reusing its storage.
// Failed batches are logged and dropped.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
	} else {
		c.logger.Debug("analytics batch published", "events", len(batch))
	}
	return batch[:0]
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: eventKey(event), Value: event})
		default:
			return batch
		}
	}
}

// eventKey partitions search events by query so one query's events stay
// ordered.
func eventKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		return "search:" + e.Query
	case ChatEvent:
		return "chat"
	default:
		return "analytics"
	}
}
