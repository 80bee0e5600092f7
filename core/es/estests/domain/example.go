// Package domain holds the entity types the estests exercise the public API
// with.
package domain

import (
	"context"
	"fmt"

	"github.com/eventfold/eventfold-go/core/es"
)

const Topic = "example"

type (
	// Example is the canonical test entity: two string attributes on top of
	// the full capability set.
	Example struct {
		es.BaseEntity
		es.VersionedEntity
		es.TimestampedEntity
		es.HashChainedEntity

		A string `json:"a"`
		B string `json:"b"`
	}

	// Swapped is an entity-specific event variant: it exchanges A and B.
	Swapped struct {
		es.EventBase
	}
)

func (e *Swapped) EventTopic() string { return "example.swapped" }

func (e *Swapped) Mutate(target es.Entity) (es.Entity, error) {
	ex, ok := target.(*Example)
	if !ok {
		return nil, fmt.Errorf("swapped event on %T", target)
	}
	ex.A, ex.B = ex.B, ex.A
	return ex, nil
}

// New is the attrs factory registered for Topic. Both attributes are
// required.
func New(attrs map[string]any) (*Example, error) {
	e := &Example{}
	for name, value := range attrs {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("attribute %q must be a string, got %T", name, value)
		}
		switch name {
		case "a":
			e.A = s
		case "b":
			e.B = s
		default:
			return nil, fmt.Errorf("unknown attribute %q", name)
		}
	}
	if _, ok := attrs["a"]; !ok {
		return nil, fmt.Errorf("attribute %q is required", "a")
	}
	if _, ok := attrs["b"]; !ok {
		return nil, fmt.Errorf("attribute %q is required", "b")
	}
	return e, nil
}

// Register wires the Example type into a topic registry and its custom
// event into an event registry.
func Register(topics *es.TopicRegistry, events *es.EventRegistry) {
	es.RegisterTopic(topics, Topic, New)
	es.RegisterEvents(events, es.EventCtor[Swapped]())
}

// === Commands ===

func (e *Example) SetA(ctx context.Context, c *es.Core, v string) error {
	return c.ChangeAttribute(ctx, e, "a", v)
}

func (e *Example) SetB(ctx context.Context, c *es.Core, v string) error {
	return c.ChangeAttribute(ctx, e, "b", v)
}

func (e *Example) Swap(ctx context.Context, c *es.Core) error {
	return c.Trigger(ctx, e, &Swapped{})
}
