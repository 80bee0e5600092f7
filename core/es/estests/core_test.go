package estests

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eventfold/eventfold-go/core/es"
	"github.com/eventfold/eventfold-go/core/es/estests/domain"
)

func startCore(t *testing.T, opts ...es.CoreOption) *es.TestCore {
	t.Helper()
	tc := es.StartTestCore(t, opts...)
	domain.Register(tc.Topics, tc.Events)
	return tc
}

func createExample(t *testing.T, tc *es.TestCore) *domain.Example {
	t.Helper()
	ent, err := tc.Create(t.Context(), domain.Topic, map[string]any{"a": "a", "b": "b"})
	require.NoError(t, err)
	ex, ok := ent.(*domain.Example)
	require.True(t, ok)
	return ex
}

// recordedEvents reads the entity's stream back out of the log and decodes it,
// so the round trip through the envelope codec is part of every replay test.
func recordedEvents(t *testing.T, tc *es.TestCore, id uuid.UUID) []es.Event {
	t.Helper()
	envs, err := tc.Log.Read(t.Context(), id)
	require.NoError(t, err)

	events := make([]es.Event, 0, len(envs))
	for _, env := range envs {
		ev, err := tc.Events.Unwrap(env)
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func TestCore_lifecycle(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	ex := createExample(t, tc)
	require.NotEqual(t, uuid.Nil, ex.ID())
	require.Equal(t, "a", ex.A)
	require.Equal(t, "b", ex.B)
	require.Equal(t, es.Version(0), ex.Version())
	require.NotEqual(t, es.GenesisHash, ex.Head())
	require.False(t, ex.CreatedOn().IsZero())
	require.True(t, ex.LastModified().Equal(ex.CreatedOn()))

	require.NoError(t, ex.SetA(ctx, tc.Core, "x"))
	require.Equal(t, "x", ex.A)
	require.Equal(t, es.Version(1), ex.Version())

	require.NoError(t, ex.Swap(ctx, tc.Core))
	require.Equal(t, "b", ex.A)
	require.Equal(t, "x", ex.B)
	require.Equal(t, es.Version(2), ex.Version())

	// the head always equals the digest of the last recorded event
	events := recordedEvents(t, tc, ex.ID())
	require.Len(t, events, 3)
	last, err := es.EventHash(events[len(events)-1])
	require.NoError(t, err)
	require.Equal(t, last, ex.Head())

	head, err := es.VerifyChain(es.GenesisHash, events...)
	require.NoError(t, err)
	require.Equal(t, ex.Head(), head)
}

func TestCore_replayReproducesState(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	ex := createExample(t, tc)
	require.NoError(t, ex.SetA(ctx, tc.Core, "x"))
	require.NoError(t, ex.SetB(ctx, tc.Core, "y"))

	replayer := es.NewCore(es.WithTopics(tc.Topics))
	replayed, head, err := replayer.Replay(recordedEvents(t, tc, ex.ID())...)
	require.NoError(t, err)
	require.Equal(t, ex.Head(), head)
	require.True(t, es.Equal(ex, replayed))

	got, ok := replayed.(*domain.Example)
	require.True(t, ok)
	require.Equal(t, "x", got.A)
	require.Equal(t, "y", got.B)
	require.Equal(t, es.Version(2), got.Version())
}

func TestCore_discard(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	ex := createExample(t, tc)
	require.NoError(t, ex.SetA(ctx, tc.Core, "x"))
	preDiscard := ex.Head()

	require.NoError(t, tc.Discard(ctx, ex))
	require.True(t, ex.Discarded())
	require.NotEqual(t, preDiscard, ex.Head())

	// terminally unusable
	require.ErrorIs(t, ex.SetA(ctx, tc.Core, "y"), es.ErrDiscarded)
	require.ErrorIs(t, tc.Discard(ctx, ex), es.ErrDiscarded)

	_, err := tc.Repo.Get(ctx, ex.ID())
	require.ErrorIs(t, err, es.ErrDiscarded)

	events := recordedEvents(t, tc, ex.ID())
	require.Len(t, events, 3)

	// replaying up to the Discarded event reproduces the last live state
	replayer := es.NewCore(es.WithTopics(tc.Topics))
	live, _, err := replayer.Replay(events[:2]...)
	require.NoError(t, err)
	require.Equal(t, "x", live.(*domain.Example).A)

	// the full history ends absent, but its chain head stays verifiable
	gone, head, err := replayer.Replay(events...)
	require.NoError(t, err)
	require.Nil(t, gone)
	require.Equal(t, ex.Head(), head)
}

func TestCore_repositoryGet(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	ex := createExample(t, tc)
	require.NoError(t, ex.SetB(ctx, tc.Core, "z"))

	got, err := tc.Repo.Get(ctx, ex.ID())
	require.NoError(t, err)
	require.True(t, es.Equal(ex, got))

	_, err = tc.Repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, es.ErrEntityNotFound)
}

func TestCore_checks(t *testing.T) {
	tc := startCore(t)
	ex := createExample(t, tc)

	stamped := func(mutate func(*es.AttributeChanged)) *es.AttributeChanged {
		ev := &es.AttributeChanged{Name: "a", Value: "y"}
		ev.ID = ex.ID()
		ev.Version = ex.Version().Next()
		ev.PrevHash = ex.Head()
		mutate(ev)
		return ev
	}

	t.Run("identity mismatch", func(t *testing.T) {
		ev := stamped(func(ev *es.AttributeChanged) { ev.ID = uuid.New() })
		_, err := tc.Apply(ex, ev)
		require.ErrorIs(t, err, es.ErrIdentityMismatch)
	})

	t.Run("stale version", func(t *testing.T) {
		ev := stamped(func(ev *es.AttributeChanged) { ev.Version = ex.Version() })
		_, err := tc.Apply(ex, ev)
		require.ErrorIs(t, err, es.ErrVersionConflict)
	})

	t.Run("skipped version", func(t *testing.T) {
		ev := stamped(func(ev *es.AttributeChanged) { ev.Version = 5 })
		_, err := tc.Apply(ex, ev)
		require.ErrorIs(t, err, es.ErrVersionConflict)
	})

	t.Run("hash chain broken", func(t *testing.T) {
		ev := stamped(func(ev *es.AttributeChanged) { ev.PrevHash = es.GenesisHash })
		_, err := tc.Apply(ex, ev)
		require.ErrorIs(t, err, es.ErrHashChain)
	})

	// none of the rejected events touched the entity
	require.Equal(t, "a", ex.A)
	require.Equal(t, es.Version(0), ex.Version())
}

func TestCore_create_errors(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	t.Run("unknown topic", func(t *testing.T) {
		_, err := tc.Create(ctx, "no.such.topic", nil)
		require.ErrorIs(t, err, es.ErrTopicResolution)
	})

	t.Run("factory rejects attrs", func(t *testing.T) {
		_, err := tc.Create(ctx, domain.Topic, map[string]any{"a": "a"})
		require.ErrorIs(t, err, es.ErrConstruction)
	})

	t.Run("created on live entity", func(t *testing.T) {
		ex := createExample(t, tc)
		_, err := tc.Apply(ex, &es.Created{OriginatorTopic: domain.Topic})
		require.ErrorIs(t, err, es.ErrConstruction)
	})
}

func TestCore_explicitID(t *testing.T) {
	tc := startCore(t)
	id := uuid.New()

	ent, err := tc.Create(t.Context(), domain.Topic,
		map[string]any{"a": "a", "b": "b"}, es.WithID(id))
	require.NoError(t, err)
	require.Equal(t, id, ent.ID())
}

func TestCore_tamperedLog(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	ex := createExample(t, tc)
	require.NoError(t, ex.SetA(ctx, tc.Core, "x"))
	require.NoError(t, ex.SetA(ctx, tc.Core, "y"))

	events := recordedEvents(t, tc, ex.ID())
	events[1].(*es.AttributeChanged).Value = "forged"

	_, err := es.VerifyChain(es.GenesisHash, events...)
	require.ErrorIs(t, err, es.ErrHashChain)
}
