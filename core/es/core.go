package es

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/eventfold/eventfold-go/internal/reflector"
)

// IDFunc produces globally-unique entity identifiers.
type IDFunc func() uuid.UUID

// Core orchestrates the mutation protocol: it builds and stamps events,
// runs the invariant checks, dispatches mutation logic, and hands committed
// events to the publisher. Mutation of a single entity is strictly
// sequential; distinct entities share no state and may be driven from
// separate goroutines without coordination.
type Core struct {
	id       string
	log      *slog.Logger
	topics   *TopicRegistry
	mutators *MutatorRegistry
	pub      Publisher
	newID    IDFunc
	now      func() time.Time
	metrics  CoreMetrics
}

func NewCore(opts ...CoreOption) *Core {
	options := coreOptions{}
	for _, opt := range opts {
		opt.applyToCore(&options)
	}

	if options.log == nil {
		options.log = slog.Default()
	}
	if options.topics == nil {
		options.topics = NewTopicRegistry()
	}
	if options.pub == nil {
		options.pub = NopPublisher()
	}
	if options.newID == nil {
		options.newID = uuid.New
	}
	if options.now == nil {
		options.now = time.Now
	}
	if options.metrics == nil {
		options.metrics = NopCoreMetrics()
	}

	id := gonanoid.Must(6)
	return &Core{
		id:       id,
		log:      options.log.With(slog.String("core", id)),
		topics:   options.topics,
		mutators: options.mutators,
		pub:      options.pub,
		newID:    options.newID,
		now:      options.now,
		metrics:  options.metrics,
	}
}

// Topics returns the core's topic registry.
func (c *Core) Topics() *TopicRegistry { return c.topics }

// Create constructs a new entity of the type registered under topic: it
// builds a Created event carrying attrs, applies it, publishes it, and
// returns the new entity. A fresh identifier is generated unless [WithID]
// supplies one. Attrs that do not satisfy the type's factory fail with
// [ErrConstruction].
func (c *Core) Create(ctx context.Context, topic string, attrs map[string]any, opts ...CreateOption) (Entity, error) {
	options := createOptions{}
	for _, opt := range opts {
		opt.applyToCreate(&options)
	}

	id := options.id
	if id == uuid.Nil {
		id = c.newID()
	}

	ev := &Created{
		EventBase: EventBase{
			ID:        id,
			Version:   0,
			Timestamp: c.now(),
			PrevHash:  c.topics.GenesisFor(topic),
			EventID:   newTimeID(),
		},
		OriginatorTopic: topic,
		Attrs:           attrs,
	}

	ent, err := c.Apply(nil, ev)
	if err != nil {
		return nil, err
	}
	if err := c.publish(ctx, ev); err != nil {
		return nil, err
	}

	c.log.Debug(
		"created",
		slog.Group("entity",
			slog.String("topic", topic),
			slog.String("id", id.String()),
		),
	)
	return ent, nil
}

// Trigger stamps ev with target's identity and extension state (next version,
// current chain head, timestamp), applies it to target in place, then
// publishes it. Mutators may return a fresh instance instead of mutating in
// place; its state is copied back into target. A discarded target fails with
// [ErrDiscarded].
func (c *Core) Trigger(ctx context.Context, target Entity, ev Event) error {
	if target == nil || target.Discarded() {
		return fmt.Errorf("%w: cannot trigger %T", ErrDiscarded, ev)
	}

	c.stamp(target, ev)
	next, err := c.Apply(target, ev)
	if err != nil {
		return err
	}
	if next != nil && next != target {
		if err := adoptState(target, next); err != nil {
			return err
		}
	}
	return c.publish(ctx, ev)
}

// ChangeAttribute triggers an AttributeChanged event setting the named
// attribute to value. This is the write half of the attribute accessor
// protocol; reads go straight to the entity's fields.
func (c *Core) ChangeAttribute(ctx context.Context, target Entity, name string, value any) error {
	return c.Trigger(ctx, target, &AttributeChanged{Name: name, Value: value})
}

// Discard triggers a Discarded event. Afterwards the entity is terminally
// unusable: any further trigger fails with [ErrDiscarded]. The chain head is
// still advanced by the Discarded event, so the recorded history stays
// verifiable.
func (c *Core) Discard(ctx context.Context, target Entity) error {
	return c.Trigger(ctx, target, &Discarded{})
}

// stamp fills ev's metadata from the target's current state. Only the fields
// belonging to capabilities the target actually has are stamped.
func (c *Core) stamp(target Entity, ev Event) {
	b := ev.base()
	b.ID = target.ID()
	if b.Timestamp.IsZero() {
		b.Timestamp = c.now()
	}
	if b.EventID == uuid.Nil {
		b.EventID = newTimeID()
	}
	if v, ok := target.(Versioned); ok {
		b.Version = v.Version().Next()
	}
	if h, ok := target.(HashChained); ok {
		b.PrevHash = h.Head()
	}
}

// Apply is the replay entry point: it runs the invariant checks against
// target and performs the variant-specific mutation. Created events construct
// a new entity (target must be nil), AttributeChanged sets the named field,
// Discarded marks the entity absent and returns nil. Either the event is
// fully applied or the target is left unmodified.
func (c *Core) Apply(target Entity, ev Event) (Entity, error) {
	if created, ok := ev.(*Created); ok {
		if target != nil {
			return nil, fmt.Errorf(
				"%w: created event for topic %q applied to live entity %s",
				ErrConstruction, created.OriginatorTopic, target.ID(),
			)
		}
		return c.applyCreated(created)
	}

	if target == nil || target.Discarded() {
		return nil, fmt.Errorf("%w: cannot apply %T", ErrDiscarded, ev)
	}

	if err := runChecks(target, ev); err != nil {
		c.metrics.CheckFailed(EventTopicOf(ev), checkName(err))
		return nil, err
	}

	// The digest is needed for the new chain head; computing it before the
	// mutation keeps a hash failure from leaving the entity half-applied.
	head, err := EventHash(ev)
	if err != nil {
		return nil, err
	}

	switch e := ev.(type) {
	case *AttributeChanged:
		if err := reflector.SetAttr(target, e.Name, e.Value); err != nil {
			return nil, fmt.Errorf("apply attribute change: %w", err)
		}
		c.imprint(target, ev, head)
		return target, nil

	case *Discarded:
		c.imprint(target, ev, head)
		target.base().discarded = true
		c.metrics.EventApplied(EventTopicOf(ev))
		return nil, nil

	default:
		next, err := c.dispatch(target, ev)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = target
		}
		c.imprint(next, ev, head)
		return next, nil
	}
}

// dispatch resolves mutation logic for an entity-specific event variant:
// the registered-function table first when one is configured, then the
// self-describing Mutator strategy.
func (c *Core) dispatch(target Entity, ev Event) (Entity, error) {
	if c.mutators != nil {
		if fn, ok := c.mutators.lookup(ev); ok {
			return fn(target, ev)
		}
	}
	if m, ok := ev.(Mutator); ok {
		return m.Mutate(target)
	}
	return nil, fmt.Errorf("%w: %T on %T", ErrUnsupportedEvent, ev, target)
}

// applyCreated reconstructs a concrete entity from a Created event by
// resolving its originator topic and seeding the extension state.
func (c *Core) applyCreated(ev *Created) (Entity, error) {
	factory, err := c.topics.Resolve(ev.OriginatorTopic)
	if err != nil {
		return nil, err
	}

	head, err := EventHash(ev)
	if err != nil {
		return nil, err
	}

	ent, err := factory(ev)
	if err != nil {
		return nil, fmt.Errorf("%w: topic %q: %v", ErrConstruction, ev.OriginatorTopic, err)
	}

	ent.base().id = ev.OriginatorID()
	if v, ok := ent.(Versioned); ok {
		v.setVersion(ev.OriginatorVersion())
	}
	if ts, ok := ent.(Timestamped); ok {
		ts.setCreatedOn(ev.OccurredAt())
		ts.setLastModified(ev.OccurredAt())
	}
	if tid, ok := ent.(timeIDTracker); ok {
		tid.trackEventID(ev.base().EventID)
	}
	if hc, ok := ent.(HashChained); ok {
		hc.setHead(head)
	}

	c.metrics.EventApplied(EventTopicOf(ev))
	return ent, nil
}

// imprint stamps the extension state a successful mutation leaves on the
// entity. Runs after the variant-specific mutation, so extensions never leak
// into domain mutation logic.
func (c *Core) imprint(target Entity, ev Event, head Hash) {
	if v, ok := target.(Versioned); ok {
		v.setVersion(ev.OriginatorVersion())
	}
	if ts, ok := target.(Timestamped); ok {
		ts.setLastModified(ev.OccurredAt())
	}
	if tid, ok := target.(timeIDTracker); ok {
		tid.trackEventID(ev.base().EventID)
	}
	if hc, ok := target.(HashChained); ok {
		hc.setHead(head)
	}
	if _, ok := ev.(*Discarded); !ok {
		c.metrics.EventApplied(EventTopicOf(ev))
	}
}

// Replay folds a recorded event sequence from scratch. It returns the final
// entity (nil when the sequence ends in a Discarded event) together with the
// final chain head, so a fully-discarded history can still be verified.
func (c *Core) Replay(events ...Event) (Entity, Hash, error) {
	var (
		cur  Entity
		head Hash
	)
	for i, ev := range events {
		next, err := c.Apply(cur, ev)
		if err != nil {
			return nil, head, fmt.Errorf("replay event %d: %w", i, err)
		}
		if h, hashErr := EventHash(ev); hashErr == nil {
			head = h
		}
		cur = next
	}
	return cur, head, nil
}

func (c *Core) publish(ctx context.Context, ev Event) error {
	topic := EventTopicOf(ev)
	t := c.metrics.PublishDuration(topic)
	defer t.ObserveDuration()

	if err := c.pub.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// newTimeID returns a time-ordered (UUIDv7) event identifier.
func newTimeID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
