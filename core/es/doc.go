// Package es provides the mutation core of an event-sourcing library: the
// machinery that derives an entity's current state, deterministically and
// verifiably, from an ordered sequence of immutable domain events.
//
// # Overview
//
// An entity is a uniquely identified object whose state is only ever changed
// by applying events. Entities embed [BaseEntity] for identity and discard
// tracking, and opt into orthogonal capabilities by embedding
// [VersionedEntity] (optimistic concurrency), [TimestampedEntity] (creation
// and last-modified times) and [HashChainedEntity] (tamper-evident rolling
// digest):
//
//	type Account struct {
//	    es.BaseEntity
//	    es.VersionedEntity
//	    es.HashChainedEntity
//
//	    Owner   string `json:"owner"`
//	    Balance int64  `json:"balance"`
//	}
//
// # Mutation protocol
//
// All mutation flows through a [Core]. Create builds a Created event from a
// registered topic and attribute values, Trigger stamps and applies a
// caller-built event, Discard ends the entity's life:
//
//	core := es.NewCore(es.WithTopics(topics), es.WithPublisher(bus))
//	acc, err := core.Create(ctx, "account", map[string]any{"owner": "ada"})
//	err = core.ChangeAttribute(ctx, acc, "owner", "grace")
//	err = core.Discard(ctx, acc)
//
// Before any mutation is accepted the core runs an ordered chain of invariant
// checks: originator identity, version continuity, and hash-chain continuity.
// A violation surfaces as [ErrIdentityMismatch], [ErrVersionConflict] or
// [ErrHashChain] and leaves the entity untouched.
//
// # Dispatch strategies
//
// Built-in event variants (Created, AttributeChanged, Discarded) are handled
// by the core itself. Entity-specific variants either apply themselves by
// implementing [Mutator], or are dispatched through a [MutatorRegistry]
// configured with [WithMutators] for cases where behavior cannot be attached
// to the event type. Both honor the same check ordering; an event nobody
// handles fails with [ErrUnsupportedEvent].
//
// # Topics
//
// A Created event stores a serialized type reference (its originator topic)
// instead of a live type, so a uniform event stream can reconstruct arbitrary
// concrete entity types. The [TopicRegistry] maps topics to factories and
// back; an unknown topic fails with [ErrTopicResolution].
//
// # Replay
//
// Core.Apply is the replay entry point used when reconstructing entities from
// stored events, and Core.Replay folds a whole sequence from scratch. The
// supplied [Repository] over an [EventLog] shows the intended wiring: every
// published event is appended, and Get rebuilds the entity by replay.
package es
