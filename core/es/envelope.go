package es

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Envelope is the storage and wire representation of one event: the
// originator metadata lifted out for indexing, plus the JSON-encoded event
// payload routed by topic.
type Envelope struct {
	// ID is the unique identifier of this envelope.
	ID string `json:"id"`
	// Topic is the event's serialized type reference, used to route
	// deserialization.
	Topic string `json:"topic"`
	// OriginatorID identifies the entity the event belongs to.
	OriginatorID uuid.UUID `json:"originator_id"`
	// OriginatorVersion is the entity version after applying the event.
	OriginatorVersion Version `json:"originator_version"`
	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`
	// PreviousHash and EventHash carry the hash-chain link.
	PreviousHash Hash `json:"previous_hash,omitempty"`
	EventHash    Hash `json:"event_hash,omitempty"`
	// Seq is the global sequence number assigned by the log.
	Seq uint64 `json:"seq,omitempty"`
	// Data is the JSON-encoded event payload.
	Data json.RawMessage `json:"data"`
}

func (e Envelope) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("envelope id is empty")
	}
	if e.Topic == "" {
		return fmt.Errorf("envelope topic is empty")
	}
	if e.OriginatorID == uuid.Nil {
		return fmt.Errorf("envelope originator id is empty")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("envelope timestamp is zero")
	}
	return nil
}

// Wrap encodes ev into an Envelope.
func Wrap(ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("wrap %T: %w", ev, err)
	}
	hash, err := EventHash(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:                gonanoid.Must(),
		Topic:             EventTopicOf(ev),
		OriginatorID:      ev.OriginatorID(),
		OriginatorVersion: ev.OriginatorVersion(),
		Timestamp:         ev.OccurredAt(),
		PreviousHash:      ev.PreviousHash(),
		EventHash:         hash,
		Data:              data,
	}, nil
}

// EventRegistry maps event topics to constructors so persisted envelopes can
// be decoded back into concrete events. The built-in variants are registered
// out of the box.
type EventRegistry struct {
	mu    sync.RWMutex
	ctors map[string]func() Event
}

func NewEventRegistry() *EventRegistry {
	r := &EventRegistry{ctors: map[string]func() Event{}}
	RegisterEvents(r,
		func() Event { return &Created{} },
		func() Event { return &AttributeChanged{} },
		func() Event { return &Discarded{} },
	)
	return r
}

// Register binds topic to a constructor producing fresh event values.
func (r *EventRegistry) Register(topic string, ctor func() Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[topic] = ctor
}

// RegisterEvents registers constructors under the topic each constructed
// event reports for itself.
func RegisterEvents(r *EventRegistry, ctors ...func() Event) {
	for _, ctor := range ctors {
		r.Register(EventTopicOf(ctor()), ctor)
	}
}

// EventCtor returns a constructor producing fresh *E values.
func EventCtor[E any, PE interface {
	*E
	Event
}]() func() Event {
	return func() Event { return PE(new(E)) }
}

// Unwrap decodes env back into a concrete event. An envelope whose topic has
// no registered constructor fails with [ErrTopicResolution].
func (r *EventRegistry) Unwrap(env Envelope) (Event, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[env.Topic]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: event topic %q", ErrTopicResolution, env.Topic)
	}
	ev := ctor()
	if env.Data != nil {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, fmt.Errorf("unwrap %s: %w", env.Topic, err)
		}
	}
	return ev, nil
}
