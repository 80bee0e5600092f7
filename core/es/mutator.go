package es

import (
	"errors"
	"reflect"
	"sync"
)

// ErrUnsupportedEvent is returned when no mutation logic is defined or
// registered for an event variant on its target.
var ErrUnsupportedEvent = errors.New("unsupported event")

// MutatorFunc is mutation logic registered for one event type: it produces
// the next entity state from the current state and the event. The core runs
// the invariant checks before dispatching and imprints version, timestamp and
// chain head afterwards, exactly as for self-describing events.
type MutatorFunc func(target Entity, ev Event) (Entity, error)

// MutatorRegistry is the alternative dispatch strategy: an external lookup
// table keyed by event type, for integration with polymorphism models that
// cannot attach behavior to the event type itself. Configure it on a core
// with [WithMutators]; events without a registered function fall back to the
// self-describing [Mutator] strategy.
type MutatorRegistry struct {
	mu    sync.RWMutex
	funcs map[reflect.Type]MutatorFunc
}

func NewMutatorRegistry() *MutatorRegistry {
	return &MutatorRegistry{funcs: map[reflect.Type]MutatorFunc{}}
}

// RegisterMutator registers fn as the mutation logic for event type E.
func RegisterMutator[E Event](r *MutatorRegistry, fn func(target Entity, ev E) (Entity, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[reflect.TypeFor[E]()] = func(target Entity, ev Event) (Entity, error) {
		return fn(target, ev.(E))
	}
}

func (r *MutatorRegistry) lookup(ev Event) (MutatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[reflect.TypeOf(ev)]
	return fn, ok
}
