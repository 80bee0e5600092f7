package es

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newWidget(attrs map[string]any) (*widget, error) {
	name, ok := attrs["name"].(string)
	if !ok {
		return nil, fmt.Errorf("attribute %q is required", "name")
	}
	return &widget{Name: name}, nil
}

func TestTopicRegistry(t *testing.T) {
	r := NewTopicRegistry()
	RegisterTopic(r, "widget", newWidget)

	factory, err := r.Resolve("widget")
	require.NoError(t, err)
	require.NotNil(t, factory)

	topic, err := r.TopicOf(&widget{})
	require.NoError(t, err)
	require.Equal(t, "widget", topic)

	t.Run("unknown topic", func(t *testing.T) {
		_, err := r.Resolve("unknown")
		require.ErrorIs(t, err, ErrTopicResolution)
	})

	t.Run("unregistered type", func(t *testing.T) {
		_, err := r.TopicOf(&gadget{})
		require.ErrorIs(t, err, ErrTopicResolution)
	})
}

func TestTopicRegistry_genesisOverride(t *testing.T) {
	r := NewTopicRegistry()
	custom := HashBytes([]byte("widget-genesis"))
	RegisterTopic(r, "widget", newWidget, WithGenesis(custom))

	require.Equal(t, custom, r.GenesisFor("widget"))
	require.Equal(t, GenesisHash, r.GenesisFor("anything-else"))
}
