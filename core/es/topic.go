package es

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrTopicResolution is returned when a serialized type reference does
	// not resolve to a registered concrete type.
	ErrTopicResolution = errors.New("topic does not resolve")
	// ErrConstruction is returned when a Created event's attribute set does
	// not satisfy the concrete type's factory.
	ErrConstruction = errors.New("entity construction failed")
)

// Factory reconstructs a concrete entity from a Created event. The core seeds
// identity, version, timestamps and chain head afterwards; factories only
// populate domain attributes.
type Factory func(ev *Created) (Entity, error)

type topicEntry struct {
	factory Factory
	genesis Hash
}

// TopicOption customizes a topic registration.
type TopicOption func(*topicEntry)

// WithGenesis overrides the chain root for entities of this topic.
func WithGenesis(h Hash) TopicOption {
	return func(e *topicEntry) { e.genesis = h }
}

// TopicRegistry maps serialized type references (topics) to entity factories
// and concrete types back to their topics. It is the indirection that lets a
// generic event stream reconstruct arbitrarily many concrete entity types.
// Populate it at process start; reads are safe for concurrent use.
type TopicRegistry struct {
	mu      sync.RWMutex
	entries map[string]topicEntry
	topics  map[reflect.Type]string
}

func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		entries: map[string]topicEntry{},
		topics:  map[reflect.Type]string{},
	}
}

// Register binds topic to a factory. prototype fixes the concrete type for
// the reverse [TopicRegistry.TopicOf] lookup.
func (r *TopicRegistry) Register(topic string, prototype Entity, factory Factory, opts ...TopicOption) {
	entry := topicEntry{factory: factory, genesis: GenesisHash}
	for _, opt := range opts {
		opt(&entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[topic] = entry
	r.topics[entityType(prototype)] = topic
}

// RegisterTopic binds topic to an attrs-based factory for entity type T.
func RegisterTopic[T Entity](r *TopicRegistry, topic string, factory func(attrs map[string]any) (T, error), opts ...TopicOption) {
	var prototype T
	r.Register(topic, prototype, func(ev *Created) (Entity, error) {
		return factory(ev.Attrs)
	}, opts...)
}

// Resolve returns the factory registered for topic, or [ErrTopicResolution].
func (r *TopicRegistry) Resolve(topic string) (Factory, error) {
	r.mu.RLock()
	entry, ok := r.entries[topic]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTopicResolution, topic)
	}
	return entry.factory, nil
}

// TopicOf returns the topic under which e's concrete type was registered.
// It is the reverse direction of Resolve, used when constructing Created
// events.
func (r *TopicRegistry) TopicOf(e Entity) (string, error) {
	r.mu.RLock()
	topic, ok := r.topics[entityType(e)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: unregistered type %T", ErrTopicResolution, e)
	}
	return topic, nil
}

// GenesisFor returns the chain root for topic, [GenesisHash] unless the
// registration overrode it.
func (r *TopicRegistry) GenesisFor(topic string) Hash {
	r.mu.RLock()
	entry, ok := r.entries[topic]
	r.mu.RUnlock()
	if !ok || entry.genesis == "" {
		return GenesisHash
	}
	return entry.genesis
}

func entityType(e Entity) reflect.Type {
	t := reflect.TypeOf(e)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
