// Package feed fans out new public submissions to connected back-office users.
package feed

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/papeesearch/portal/internal/models"
)

// subscriberBuffer bounds how far a slow client may fall behind before events are dropped.
const subscriberBuffer = 100

// Kinds lists the modules whose submissions appear on the feed.
var Kinds = []models.Module{
	models.ModuleManuscripts,
	models.ModuleAbstracts,
	models.ModuleRegistrations,
	models.ModuleApplicants,
}

// Event announces one new public submission.
type Event struct {
	Kind      models.Module `json:"kind"`
	ID        string        `json:"id"`
	Reference string        `json:"reference,omitempty"`
	Title     string        `json:"title"`
	At        time.Time     `json:"at"`
}

// Subscriber receives events of the kinds it subscribed to.
type Subscriber struct {
	ID        string
	Kinds     []models.Module
	Ch        chan *Event
	CreatedAt time.Time
}

// Wants reports whether the subscriber receives events of kind.
func (s *Subscriber) Wants(kind models.Module) bool {
	return slices.Contains(s.Kinds, kind)
}

// Broker manages feed subscriptions and publishing.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
	logger      *slog.Logger
}

// NewBroker creates a new feed broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for the given kinds. No kinds means every kind.
func (b *Broker) Subscribe(kinds ...models.Module) *Subscriber {
	if len(kinds) == 0 {
		kinds = Kinds
	}

	sub := &Subscriber{
		ID:        uuid.NewString(),
		Kinds:     slices.Clone(kinds),
		Ch:        make(chan *Event, subscriberBuffer),
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.Ch)
		return sub
	}
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "subscriber_id", sub.ID, "kinds", sub.Kinds)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish delivers ev to every interested subscriber without blocking.
// A subscriber whose buffer is full misses the event.
func (b *Broker) Publish(ev *Event) {
	if ev == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.Wants(ev.Kind) {
			continue
		}
		select {
		case sub.Ch <- ev:
		default:
			b.logger.Warn("subscriber channel full, dropping feed event",
				"subscriber_id", sub.ID,
				"kind", ev.Kind,
				"reference", ev.Reference,
			)
		}
	}
}

// Close ends every subscription. Subscribers arriving afterwards get an
// already closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.Ch)
		delete(b.subscribers, id)
	}
	b.logger.Info("feed broker closed")
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
