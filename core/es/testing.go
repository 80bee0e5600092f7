package es

import (
	"log/slog"
	"testing"
)

// === Helpers ===

// TestCore wires a core to an in-memory bus and event log, the way a real
// deployment wires it to a broker and a durable store.
type TestCore struct {
	*Core
	t *testing.T

	Topics *TopicRegistry
	Events *EventRegistry
	Bus    *InMemoryBus
	Log    *InMemoryLog
	Repo   *Repository
}

func StartTestCore(t *testing.T, opts ...CoreOption) *TestCore {
	var (
		log    = slog.Default()
		topics = NewTopicRegistry()
		events = NewEventRegistry()
		bus    = NewInMemoryBus(log)
		store  = NewInMemoryLog()
	)
	repo := NewRepository(log, store, events, topics)
	core := NewCore(append([]CoreOption{
		WithLog(log),
		WithTopics(topics),
		WithPublisher(MultiPublisher(repo, bus)),
	}, opts...)...)

	return &TestCore{
		Core:   core,
		t:      t,
		Topics: topics,
		Events: events,
		Bus:    bus,
		Log:    store,
		Repo:   repo,
	}
}
