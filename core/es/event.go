package es

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventfold/eventfold-go/internal/reflector"
)

// Event is one immutable state transition of an entity. Concrete events embed
// [EventBase], which carries the originator metadata the invariant checks run
// against. Payload fields live on the concrete type; the embedded base is
// stamped by [Core.Trigger] (or seeded by [Core.Create]) before application.
type Event interface {
	// OriginatorID is the id of the entity this event belongs to.
	OriginatorID() uuid.UUID
	// OriginatorVersion is the version the entity will have after applying
	// this event. Created events carry 0.
	OriginatorVersion() Version
	// OccurredAt is when the event was created.
	OccurredAt() time.Time
	// PreviousHash is the entity's chain head at the time the event was
	// triggered. Empty for entities that are not hash-chained.
	PreviousHash() Hash

	base() *EventBase
}

// Mutator is the default dispatch strategy: a self-describing event that
// knows how to produce the next entity state from the current one. The core
// runs the invariant checks before calling Mutate, and imprints version,
// timestamp and chain head afterwards, so implementations only deal with
// their payload.
type Mutator interface {
	Mutate(target Entity) (Entity, error)
}

// EventBase is the embeddable metadata block shared by all events.
type EventBase struct {
	ID        uuid.UUID `json:"originator_id"`
	Version   Version   `json:"originator_version"`
	Timestamp time.Time `json:"timestamp"`
	PrevHash  Hash      `json:"previous_hash,omitempty"`
	// EventID is a time-ordered (UUIDv7) identifier, the field source for
	// entities that derive their timestamps from event ids.
	EventID uuid.UUID `json:"event_id"`

	hashOnce sync.Once
	hash     Hash
	hashErr  error
}

func (b *EventBase) OriginatorID() uuid.UUID      { return b.ID }
func (b *EventBase) OriginatorVersion() Version   { return b.Version }
func (b *EventBase) OccurredAt() time.Time        { return b.Timestamp }
func (b *EventBase) PreviousHash() Hash           { return b.PrevHash }
func (b *EventBase) base() *EventBase             { return b }

// === Built-in variants ===

// Created constructs a new entity. It stores a serialized reference to the
// concrete entity type (the originator topic) plus the attribute values the
// type's factory needs, so it can be applied without a live type pointer.
type Created struct {
	EventBase
	OriginatorTopic string         `json:"originator_topic"`
	Attrs           map[string]any `json:"attrs,omitempty"`
}

func (e *Created) EventTopic() string { return "es.created" }

// AttributeChanged sets a single named attribute to a new value.
type AttributeChanged struct {
	EventBase
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (e *AttributeChanged) EventTopic() string { return "es.attribute_changed" }

// Discarded terminally ends an entity's life. The chain head is still
// advanced by it, so a fully-discarded history stays verifiable.
type Discarded struct {
	EventBase
}

func (e *Discarded) EventTopic() string { return "es.discarded" }

// EventTopicOf returns the stable serialized type reference of an event:
// its EventTopic override when present, otherwise the fully qualified type
// name.
func EventTopicOf(ev any) string {
	if t, ok := ev.(interface{ EventTopic() string }); ok {
		return t.EventTopic()
	}
	return reflector.TypeInfoOf(ev).Name
}
