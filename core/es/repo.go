package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Repository persists every committed event and reconstructs entities by
// replay. It implements [Publisher], so wiring it into a core's publisher
// chain acts as a persistence policy: whatever the core commits ends up in
// the event log.
type Repository struct {
	log    *slog.Logger
	store  EventLog
	events *EventRegistry
	replay *Core
}

// NewRepository builds a repository over store. Decoding uses events; replay
// resolves Created events through topics. opts configure the internal replay
// core (metrics, mutator registry, ...). The replay core never publishes; a
// publisher supplied in opts is ignored, so replayed events cannot loop back
// into the log.
func NewRepository(log *slog.Logger, store EventLog, events *EventRegistry, topics *TopicRegistry, opts ...CoreOption) *Repository {
	if log == nil {
		log = slog.Default()
	}
	replay := NewCore(append(append([]CoreOption{}, opts...),
		WithLog(log),
		WithTopics(topics),
		WithPublisher(NopPublisher()),
	)...)

	return &Repository{
		log:    log.With(slog.String("repo", "eventlog")),
		store:  store,
		events: events,
		replay: replay,
	}
}

// Publish appends the committed event to the log. Part of the [Publisher]
// contract; a concurrent writer that already advanced the stream surfaces
// here as [ErrVersionConflict].
func (r *Repository) Publish(ctx context.Context, ev Event) error {
	env, err := Wrap(ev)
	if err != nil {
		return err
	}

	res, err := r.store.Append(ctx, env.OriginatorID, []Envelope{env})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			r.replay.metrics.VersionConflict(env.Topic)
		}
		return fmt.Errorf("append %s: %w", env.Topic, err)
	}
	r.replay.metrics.EventsAppended(env.Topic, 1)

	r.log.Debug(
		"appended",
		slog.Group("event",
			slog.String("topic", env.Topic),
			slog.String("originator", env.OriginatorID.String()),
			env.OriginatorVersion.SlogAttr(),
			slog.Uint64("seq", res.LastSeq),
		),
	)
	return nil
}

var _ Publisher = (*Repository)(nil)

// Get reconstructs the entity with the given id by replaying its recorded
// event sequence from scratch. A discarded entity yields [ErrDiscarded]; an
// unknown id yields [ErrEntityNotFound].
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Entity, error) {
	envs, err := r.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	events := make([]Event, 0, len(envs))
	for _, env := range envs {
		ev, err := r.events.Unwrap(env)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	topic := envs[0].Topic
	if created, ok := events[0].(*Created); ok {
		topic = created.OriginatorTopic
	}

	t := r.replay.metrics.ReplayDuration(topic)
	defer t.ObserveDuration()

	ent, head, err := r.replay.Replay(events...)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		return nil, fmt.Errorf("%w: %s (final head %s)", ErrDiscarded, id, head)
	}
	return ent, nil
}
