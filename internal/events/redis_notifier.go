package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// RedisNotifier appends events to a Redis Stream. Events are queued on a
// buffered channel and drained by a background goroutine; when the buffer
// is full the event is dropped with a warning rather than blocking a
// transition. The stream consumer side provides at-least-once delivery.
type RedisNotifier struct {
	client    *redis.Client
	stream    string
	logger    *zap.Logger
	queue     chan Event
	closeOnce sync.Once
	done      chan struct{}

	// mu orders Publish against Close so a late publish is dropped
	// instead of panicking on a send to the closed queue.
	mu     sync.RWMutex
	closed bool
}

func NewRedisNotifier(client *redis.Client, stream string, bufferSize int, logger *zap.Logger) *RedisNotifier {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	n := &RedisNotifier{
		client: client,
		stream: stream,
		logger: logger,
		queue:  make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go n.drain()
	return n
}

func (n *RedisNotifier) Publish(event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Warn("notifier closed, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("tenant_id", event.TenantID.String()))
		return
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("tenant_id", event.TenantID.String()))
	}
}

func (n *RedisNotifier) drain() {
	defer close(n.done)
	for event := range n.queue {
		n.deliver(event)
	}
}

func (n *RedisNotifier) deliver(event Event) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		n.logger.Error("marshal event payload", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"id":          event.ID.String(),
			"type":        string(event.Type),
			"tenant_id":   event.TenantID.String(),
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
			"payload":     payload,
		},
	}).Err()
	if err != nil {
		n.logger.Error("publish event to stream",
			zap.String("stream", n.stream),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

// Close flushes queued events and stops the drain goroutine. Publishes
// that arrive after Close are dropped.
func (n *RedisNotifier) Close() error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		close(n.queue)
	})
	<-n.done
	return nil
}
