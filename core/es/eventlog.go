package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrEntityNotFound is returned when no events exist for an originator.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrLogNoEvents is returned for an append of zero envelopes.
	ErrLogNoEvents = errors.New("no events to append")
)

// AppendResult reports the outcome of a successful append.
type AppendResult struct {
	LastSeq uint64
}

// EventLog stores envelopes per originator stream, in order. Durable
// implementations live outside this module; the in-memory log exists to
// exercise the replay path and for tests.
type EventLog interface {
	// Read returns the stream for one originator, oldest first.
	Read(ctx context.Context, originatorID uuid.UUID) ([]Envelope, error)
	// Append adds envelopes to the originator's stream. The first envelope's
	// originator version must be exactly one past the stream's current tail
	// (0 for an empty stream), else [ErrVersionConflict].
	Append(ctx context.Context, originatorID uuid.UUID, envs []Envelope) (*AppendResult, error)
}

// InMemoryLog is a simple, correct (optimistic) event log for tests/dev.
type InMemoryLog struct {
	mu      sync.Mutex
	log     *slog.Logger
	seq     atomic.Uint64
	streams map[uuid.UUID][]Envelope
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		log:     slog.Default().With(slog.String("eventlog", "memory")),
		streams: map[uuid.UUID][]Envelope{},
	}
}

func (l *InMemoryLog) Read(_ context.Context, originatorID uuid.UUID) ([]Envelope, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stream, ok := l.streams[originatorID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, originatorID)
	}

	out := make([]Envelope, len(stream))
	copy(out, stream)
	return out, nil
}

func (l *InMemoryLog) Append(_ context.Context, originatorID uuid.UUID, envs []Envelope) (*AppendResult, error) {
	if len(envs) == 0 {
		return nil, ErrLogNoEvents
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		stream = l.streams[originatorID]
		next   Version
	)
	if len(stream) > 0 {
		next = stream[len(stream)-1].OriginatorVersion.Next()
	}

	var lastSeq uint64
	appended := make([]Envelope, 0, len(envs))
	for i, env := range envs {
		if err := env.Validate(); err != nil {
			return nil, err
		}
		if env.OriginatorID != originatorID {
			return nil, fmt.Errorf(
				"%w: envelope for %s appended to stream %s",
				ErrIdentityMismatch, env.OriginatorID, originatorID,
			)
		}
		if want := next + Version(i); env.OriginatorVersion != want {
			return nil, fmt.Errorf(
				"%w: stream %s expects version %d, envelope carries %d",
				ErrVersionConflict, originatorID, want, env.OriginatorVersion,
			)
		}
		lastSeq = l.seq.Add(1)
		env.Seq = lastSeq
		appended = append(appended, env)
	}

	l.streams[originatorID] = append(stream, appended...)
	l.log.Debug(
		"append",
		slog.String("originator", originatorID.String()),
		slog.Uint64("last_seq", lastSeq),
		slog.Int("num_events", len(appended)),
	)

	return &AppendResult{LastSeq: lastSeq}, nil
}

var _ EventLog = (*InMemoryLog)(nil)
