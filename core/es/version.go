package es

import (
	"errors"
	"log/slog"
)

// ErrVersionConflict is the optimistic-concurrency signal: the event was
// triggered against an entity version that is no longer current. The caller
// should re-read the entity and retry with a freshly triggered event.
var ErrVersionConflict = errors.New("originator version conflict")

// Version is the position of an entity within its event sequence. A Created
// event carries version 0 and every subsequent event advances the entity by
// exactly one. Versions are used for optimistic concurrency control: applying
// an event whose originator version is not current+1 fails with
// [ErrVersionConflict].
type Version uint64

func (v Version) Uint64() uint64 { return uint64(v) }

// Next returns the version the entity will have after one more event.
func (v Version) Next() Version { return v + 1 }

func (v Version) SlogAttr() slog.Attr                    { return newSlogVersionAttr("version", v) }
func (v Version) SlogAttrWithKey(key string) slog.Attr   { return newSlogVersionAttr(key, v) }
func newSlogVersionAttr(key string, v Version) slog.Attr { return slog.Uint64(key, uint64(v)) }
