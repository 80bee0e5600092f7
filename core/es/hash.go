package es

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
)

// ErrHashChain signals a break in an entity's hash chain: an event whose
// previous hash does not match the entity's current head. This is how replay
// out of order, omitted events, and tampering with stored event content are
// detected.
var ErrHashChain = errors.New("hash chain broken")

// Hash is a hex-encoded SHA-256 digest.
type Hash string

// GenesisHash is the chain head of an entity before any event has been
// applied: the digest of empty input. Types that need their own chain root
// can override it per topic with [WithGenesis].
const GenesisHash Hash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// HashBytes returns the SHA-256 digest of data.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// CanonicalHash returns the digest of the RFC 8785 canonical JSON form of v,
// so the result is independent of map ordering and encoder quirks.
func CanonicalHash(v any) (Hash, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical hash: %w", err)
	}
	canon, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonical hash: %w", err)
	}
	return HashBytes(canon), nil
}

// EventHash returns the digest over ev's own field values, excluding the
// digest itself. It is computed on first use and cached on the event, so
// repeated calls are idempotent and cheap.
func EventHash(ev Event) (Hash, error) {
	b := ev.base()
	b.hashOnce.Do(func() {
		b.hash, b.hashErr = computeEventHash(ev)
	})
	return b.hash, b.hashErr
}

// computeEventHash digests the event topic together with the event's JSON
// state. The cached digest fields are unexported and therefore never part of
// the hashed content.
func computeEventHash(ev Event) (Hash, error) {
	state, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("hash event %T: %w", ev, err)
	}
	return CanonicalHash(struct {
		Topic string          `json:"topic"`
		State json.RawMessage `json:"state"`
	}{
		Topic: EventTopicOf(ev),
		State: state,
	})
}

// VerifyChain walks a recorded event sequence and checks that every event
// links to its predecessor's digest, starting from genesis. Any field change
// in a stored event alters its digest and breaks the link to the next event.
// It returns the final chain head, which remains meaningful even when the
// sequence ends in a Discarded event and no live entity exists to hold it.
func VerifyChain(genesis Hash, events ...Event) (Hash, error) {
	head := genesis
	for i, ev := range events {
		if ev.PreviousHash() != head {
			return head, fmt.Errorf(
				"%w: event %d carries previous hash %s, chain head is %s",
				ErrHashChain, i, ev.PreviousHash(), head,
			)
		}
		h, err := EventHash(ev)
		if err != nil {
			return head, err
		}
		head = h
	}
	return head, nil
}
