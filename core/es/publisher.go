package es

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Publisher delivers a committed event to subscribers. Fire-and-forget from
// the core's viewpoint: retry and dead-lettering are the collaborator's
// responsibility. There is no hidden global bus; a publisher is injected into
// the core explicitly.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// NopPublisher returns a publisher that drops every event.
func NopPublisher() Publisher { return nopPublisher{} }

// MultiPublisher fans one event out to several publishers in order, stopping
// at the first failure.
func MultiPublisher(pubs ...Publisher) Publisher {
	return PublisherFunc(func(ctx context.Context, ev Event) error {
		for _, p := range pubs {
			if err := p.Publish(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// === In-memory bus ===

// PublishFilter restricts a subscription to an event topic and/or originator.
// Zero fields match everything.
type PublishFilter struct {
	Topic        string
	OriginatorID uuid.UUID
}

// Subscription is a live feed of published events.
type Subscription interface {
	// Chan delivers matching events. It is closed when the subscription ends.
	Chan() <-chan Event
	Cancel()
}

// InMemoryBus is a process-local fan-out publisher for tests and examples.
type InMemoryBus struct {
	mu   sync.Mutex
	log  *slog.Logger
	subs map[string]*busSubscription
}

func NewInMemoryBus(log *slog.Logger) *InMemoryBus {
	if log == nil {
		log = slog.Default()
	}
	return &InMemoryBus{
		log:  log.With(slog.String("bus", "memory")),
		subs: map[string]*busSubscription{},
	}
}

// Subscribe registers a feed of future events matching all given filters.
// The subscription ends when ctx is done or Cancel is called.
func (b *InMemoryBus) Subscribe(ctx context.Context, filters ...PublishFilter) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	subID := gonanoid.Must()
	sub := &busSubscription{
		filters: filters,
		ch:      make(chan Event, 16),
	}
	// Sends happen under b.mu, so removing the sub before closing its channel
	// makes the close safe.
	sub.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, subID)
		close(sub.ch)
	}
	b.subs[subID] = sub

	context.AfterFunc(ctx, sub.Cancel)

	return sub
}

func (b *InMemoryBus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		return nil
	}

	b.log.Debug(
		"dispatching event",
		slog.String("topic", EventTopicOf(ev)),
		slog.Int("subscriptions", len(b.subs)),
	)

	for _, sub := range b.subs {
		if !matchFilters(ev, sub.filters) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// subscriber buffer full; drop instead of stalling the publisher
			b.log.Warn(
				"dropping event",
				slog.String("topic", EventTopicOf(ev)),
			)
		}
	}
	return nil
}

var _ Publisher = (*InMemoryBus)(nil)

type busSubscription struct {
	filters []PublishFilter
	ch      chan Event
	once    sync.Once
	cancel  func()
}

func (s *busSubscription) Chan() <-chan Event { return s.ch }
func (s *busSubscription) Cancel()            { s.once.Do(s.cancel) }

func matchFilters(ev Event, filters []PublishFilter) bool {
	for _, f := range filters {
		if !matchFilter(ev, f) {
			return false
		}
	}
	return true
}

func matchFilter(ev Event, f PublishFilter) bool {
	if f.Topic != "" && EventTopicOf(ev) != f.Topic {
		return false
	}
	if f.OriginatorID != uuid.Nil && ev.OriginatorID() != f.OriginatorID {
		return false
	}
	return true
}
