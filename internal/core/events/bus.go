package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Header identifies one published event.
type Header struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewHeader(topic string) Header {
	return Header{ID: uuid.NewString(), Topic: topic, OccurredAt: time.Now().UTC()}
}

func (h Header) EventHeader() Header { return h }

type Event interface {
	EventHeader() Header
}

type Handler func(ctx context.Context, event Event) error

// Publisher is what writers depend on; services never subscribe.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
}

// EventBus is an in-process topic router.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	inflight sync.WaitGroup
	logger   *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{handlers: make(map[string][]Handler), logger: logger}
}

func (b *EventBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], h)
	n := len(b.handlers[topic])
	b.mu.Unlock()

	b.logger.Debug("event handler registered", "topic", topic, "handlers", n)
}

func (b *EventBus) subscribers(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[topic]...)
}

// Publish runs each handler on its own goroutine with a context that
// outlives the caller. Failures are logged only.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	h := event.EventHeader()
	detached := context.WithoutCancel(ctx)
	for _, handler := range b.subscribers(h.Topic) {
		b.inflight.Add(1)
		go func(run Handler) {
			defer b.inflight.Done()
			b.run(detached, h, run, event)
		}(handler)
	}
	return nil
}

// PublishSync runs handlers in subscription order and returns the first failure.
func (b *EventBus) PublishSync(ctx context.Context, event Event) error {
	h := event.EventHeader()
	for _, handler := range b.subscribers(h.Topic) {
		if err := b.run(ctx, h, handler, event); err != nil {
			return fmt.Errorf("deliver %s %s: %w", h.Topic, h.ID, err)
		}
	}
	return nil
}

// Wait blocks until every handler started by Publish has returned.
func (b *EventBus) Wait() {
	b.inflight.Wait()
}

func (b *EventBus) run(ctx context.Context, h Header, handler Handler, event Event) error {
	err := handler(ctx, event)
	if err != nil {
		b.logger.Error("event handler failed", "topic", h.Topic, "event_id", h.ID, "error", err)
	}
	return err
}
