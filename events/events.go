// Package events is the in-process publish/subscribe bus that carries
// session state changes to the browser stream and to Kafka.
package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Topic string

const (
	TopicCartUpdated Topic = "cart.updated"
	TopicAuthChanged Topic = "auth.changed"
)

type Event struct {
	Topic     Topic     `json:"topic"`
	SessionID string    `json:"sessionId"`
	Time      time.Time `json:"time"`
	Payload   any       `json:"payload"`
}

// CartUpdated is published after every guest cart mutation.
type CartUpdated struct {
	Count      int             `json:"count"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// AuthChanged is published on login, logout and registration.
type AuthChanged struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
}

type Handler func(ctx context.Context, ev Event)

type subscription struct {
	topic Topic // empty matches every topic
	h     Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]subscription
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{subs: make(map[int]subscription), logger: logger}
}

// Subscribe registers h for one topic. The returned func removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = subscription{topic: topic, h: h}
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	return b.Subscribe("", h)
}

func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id, s := range b.subs {
		if s.topic == "" || s.topic == ev.Topic {
			ids = append(ids, id)
		}
	}
	handlers := make([]Handler, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, b.subs[id].h)
	}
	b.mu.RUnlock()

	b.logger.Debug("publishing event",
		zap.String("topic", string(ev.Topic)),
		zap.String("session_id", ev.SessionID),
		zap.Int("subscribers", len(handlers)))

	for _, h := range handlers {
		h(ctx, ev)
	}
}

// Channel subscribes a buffered channel to one session's events. Events
// are dropped when the buffer is full so a slow reader never blocks a
// publisher.
func (b *Bus) Channel(sessionID string, size int) (<-chan Event, func()) {
	ch := make(chan Event, size)
	var once sync.Once
	var mu sync.Mutex
	closed := false

	unsub := b.SubscribeAll(func(_ context.Context, ev Event) {
		if ev.SessionID != sessionID {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				zap.String("topic", string(ev.Topic)),
				zap.String("session_id", sessionID))
		}
	})

	return ch, func() {
		once.Do(func() {
			unsub()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}
