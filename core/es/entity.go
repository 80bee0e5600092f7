package es

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDiscarded is returned for any operation on an entity that has been
	// discarded (or replayed past its Discarded event).
	ErrDiscarded = errors.New("entity is discarded")
	// ErrIdentityMismatch is returned when an event's originator id does not
	// match the target entity's id.
	ErrIdentityMismatch = errors.New("originator id mismatch")
)

// Entity is a uniquely identified object whose state is fully determined by
// its event sequence. Concrete entities embed [BaseEntity] and opt into the
// orthogonal capabilities by embedding [VersionedEntity], [TimestampedEntity],
// [TimeIDEntity] and/or [HashChainedEntity]. Entity fields are mutated only
// through [Core.Apply]; no other code path alters them.
type Entity interface {
	// ID is the entity's immutable unique identifier.
	ID() uuid.UUID
	// Discarded reports whether the entity has reached its terminal state.
	Discarded() bool

	base() *BaseEntity
}

// BaseEntity carries identity and discard status.
type BaseEntity struct {
	id        uuid.UUID
	discarded bool
}

func (b *BaseEntity) ID() uuid.UUID    { return b.id }
func (b *BaseEntity) Discarded() bool  { return b.discarded }
func (b *BaseEntity) base() *BaseEntity { return b }

// === Capabilities ===

// Versioned is the optimistic-concurrency capability: a monotonic version
// counter advanced by exactly one per applied event.
type Versioned interface {
	Version() Version
	setVersion(Version)
}

// VersionedEntity is the embeddable implementation of [Versioned].
type VersionedEntity struct {
	version Version
}

func (e *VersionedEntity) Version() Version     { return e.version }
func (e *VersionedEntity) setVersion(v Version) { e.version = v }

// Timestamped is the capability tracking when the entity was created and last
// modified, sourced from event timestamps. Backwards timestamps are tolerated
// here (clocks may be imprecise); policing them is a collaborator's job.
type Timestamped interface {
	CreatedOn() time.Time
	LastModified() time.Time
	setCreatedOn(time.Time)
	setLastModified(time.Time)
}

// TimestampedEntity is the embeddable implementation of [Timestamped].
type TimestampedEntity struct {
	createdOn    time.Time
	lastModified time.Time
}

func (e *TimestampedEntity) CreatedOn() time.Time       { return e.createdOn }
func (e *TimestampedEntity) LastModified() time.Time    { return e.lastModified }
func (e *TimestampedEntity) setCreatedOn(t time.Time)   { e.createdOn = t }
func (e *TimestampedEntity) setLastModified(t time.Time) { e.lastModified = t }

// TimeIDEntity is the identifier-derived timestamp variant: creation and
// last-modified times are read out of the time-ordered (UUIDv7) event ids
// rather than a separate timestamp field.
type TimeIDEntity struct {
	firstEventID uuid.UUID
	lastEventID  uuid.UUID
}

type timeIDTracker interface {
	trackEventID(uuid.UUID)
}

func (e *TimeIDEntity) trackEventID(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	if e.firstEventID == uuid.Nil {
		e.firstEventID = id
	}
	e.lastEventID = id
}

func (e *TimeIDEntity) CreatedOn() time.Time    { return timeOfID(e.firstEventID) }
func (e *TimeIDEntity) LastModified() time.Time { return timeOfID(e.lastEventID) }

func timeOfID(id uuid.UUID) time.Time {
	if id == uuid.Nil {
		return time.Time{}
	}
	sec, nsec := id.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// HashChained is the tamper-evidence capability: a rolling digest ("head")
// linking every applied event to its predecessor.
type HashChained interface {
	Head() Hash
	setHead(Hash)
}

// HashChainedEntity is the embeddable implementation of [HashChained]. The
// zero value starts at [GenesisHash].
type HashChainedEntity struct {
	head Hash
}

func (e *HashChainedEntity) Head() Hash {
	if e.head == "" {
		return GenesisHash
	}
	return e.head
}

func (e *HashChainedEntity) setHead(h Hash) { e.head = h }

// adoptState copies next's state into target. Used when a mutator produces a
// fresh instance instead of mutating in place, so Trigger's in-place contract
// holds for both styles.
func adoptState(target, next Entity) error {
	tv, nv := reflect.ValueOf(target), reflect.ValueOf(next)
	if tv.Type() != nv.Type() {
		return fmt.Errorf("mutation of %T produced %T", target, next)
	}
	tv.Elem().Set(nv.Elem())
	return nil
}

// === Equality ===

// Equal reports whether two entities have the same concrete type and
// identical field-by-field state. It exists for test assertions (replay
// produces an entity Equal to the live-triggered one), not for identity
// comparison.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if a.ID() != b.ID() || a.Discarded() != b.Discarded() {
		return false
	}
	if av, ok := a.(Versioned); ok {
		if av.Version() != b.(Versioned).Version() {
			return false
		}
	}
	if at, ok := a.(Timestamped); ok {
		bt := b.(Timestamped)
		if !at.CreatedOn().Equal(bt.CreatedOn()) || !at.LastModified().Equal(bt.LastModified()) {
			return false
		}
	}
	if ah, ok := a.(HashChained); ok {
		if ah.Head() != b.(HashChained).Head() {
			return false
		}
	}
	// exported (domain) state
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
