package estests

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventfold/eventfold-go/core/es"
)

func receive(t *testing.T, sub es.Subscription) es.Event {
	t.Helper()
	select {
	case ev := <-sub.Chan():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestBus_deliversCommittedEvents(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	sub := tc.Bus.Subscribe(ctx)
	defer sub.Cancel()

	ex := createExample(t, tc)

	created, ok := receive(t, sub).(*es.Created)
	require.True(t, ok)
	require.Equal(t, ex.ID(), created.OriginatorID())

	require.NoError(t, ex.SetA(ctx, tc.Core, "x"))

	changed, ok := receive(t, sub).(*es.AttributeChanged)
	require.True(t, ok)
	require.Equal(t, "a", changed.Name)
	require.Equal(t, "x", changed.Value)
	require.Equal(t, es.Version(1), changed.OriginatorVersion())
}

func TestBus_cancelClosesChannel(t *testing.T) {
	tc := startCore(t)

	sub := tc.Bus.Subscribe(t.Context())
	sub.Cancel()

	_, ok := <-sub.Chan()
	require.False(t, ok)

	// canceling twice is fine, and canceled subs no longer receive
	sub.Cancel()
	createExample(t, tc)
}

func TestBus_slowSubscriberDoesNotStallPublish(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	// a subscriber that never reads must not block publishing past its buffer
	sub := tc.Bus.Subscribe(ctx)
	defer sub.Cancel()

	ex := createExample(t, tc)
	for i := 0; i < 32; i++ {
		require.NoError(t, ex.SetA(ctx, tc.Core, fmt.Sprintf("v%d", i)))
	}
	require.Equal(t, es.Version(32), ex.Version())
}

func TestBus_filters(t *testing.T) {
	tc := startCore(t)
	ctx := t.Context()

	first := createExample(t, tc)
	second := createExample(t, tc)

	sub := tc.Bus.Subscribe(ctx, es.PublishFilter{
		Topic:        "es.attribute_changed",
		OriginatorID: first.ID(),
	})
	defer sub.Cancel()

	require.NoError(t, second.SetA(ctx, tc.Core, "other"))
	require.NoError(t, first.Swap(ctx, tc.Core))
	require.NoError(t, first.SetA(ctx, tc.Core, "mine"))

	ev := receive(t, sub)
	require.Equal(t, first.ID(), ev.OriginatorID())
	changed, ok := ev.(*es.AttributeChanged)
	require.True(t, ok)
	require.Equal(t, "mine", changed.Value)

	select {
	case extra := <-sub.Chan():
		t.Fatalf("unexpected extra event %T", extra)
	default:
	}
}
