package es

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRepository_replayNeverPublishes(t *testing.T) {
	var published int
	pub := PublisherFunc(func(context.Context, Event) error {
		published++
		return nil
	})

	topics := NewTopicRegistry()
	RegisterTopic(topics, "widget", newWidget)
	store := NewInMemoryLog()
	repo := NewRepository(nil, store, NewEventRegistry(), topics, WithPublisher(pub))

	ev := &Created{
		OriginatorTopic: "widget",
		Attrs:           map[string]any{"name": "w"},
	}
	ev.ID = uuid.New()
	ev.Timestamp = time.Now()
	ev.PrevHash = GenesisHash
	env, err := Wrap(ev)
	require.NoError(t, err)
	_, err = store.Append(t.Context(), ev.ID, []Envelope{env})
	require.NoError(t, err)

	ent, err := repo.Get(t.Context(), ev.ID)
	require.NoError(t, err)
	require.Equal(t, "w", ent.(*widget).Name)

	// a publisher handed in through opts must not fire during replay
	require.Zero(t, published)
}
