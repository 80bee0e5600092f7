package es

import (
	"errors"
	"fmt"
)

// Check is one invariant validated before a mutation is accepted.
type Check func(target Entity, ev Event) error

// mutationChecks is the ordered chain run before every mutation: identity
// continuity, then version continuity, then hash-chain continuity. Each check
// applies only when the target has the corresponding capability, so the
// chain composes without the extensions knowing about each other.
var mutationChecks = []Check{
	checkOriginatorID,
	checkOriginatorVersion,
	checkPreviousHash,
}

func runChecks(target Entity, ev Event) error {
	for _, check := range mutationChecks {
		if err := check(target, ev); err != nil {
			return err
		}
	}
	return nil
}

// checkName classifies a check failure for instrumentation.
func checkName(err error) string {
	switch {
	case errors.Is(err, ErrIdentityMismatch):
		return "originator_id"
	case errors.Is(err, ErrVersionConflict):
		return "originator_version"
	case errors.Is(err, ErrHashChain):
		return "previous_hash"
	default:
		return "unknown"
	}
}

func checkOriginatorID(target Entity, ev Event) error {
	if _, ok := ev.(*Created); ok {
		// a Created event has no prior target to match against
		return nil
	}
	if target.ID() != ev.OriginatorID() {
		return fmt.Errorf(
			"%w: entity %s, event originated from %s",
			ErrIdentityMismatch, target.ID(), ev.OriginatorID(),
		)
	}
	return nil
}

func checkOriginatorVersion(target Entity, ev Event) error {
	v, ok := target.(Versioned)
	if !ok {
		return nil
	}
	if expect := v.Version().Next(); ev.OriginatorVersion() != expect {
		return fmt.Errorf(
			"%w: event %T carries version %d, entity %s expects %d",
			ErrVersionConflict, ev, ev.OriginatorVersion(), target.ID(), expect,
		)
	}
	return nil
}

func checkPreviousHash(target Entity, ev Event) error {
	h, ok := target.(HashChained)
	if !ok {
		return nil
	}
	if ev.PreviousHash() != h.Head() {
		return fmt.Errorf(
			"%w: event %T carries previous hash %s, entity %s head is %s",
			ErrHashChain, ev, ev.PreviousHash(), target.ID(), h.Head(),
		)
	}
	return nil
}
