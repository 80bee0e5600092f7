package es

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type (
	valueOption[T any] struct{ v T }

	PublisherOption valueOption[Publisher]
	TopicsOption    valueOption[*TopicRegistry]
	MutatorsOption  valueOption[*MutatorRegistry]
	IDFuncOption    valueOption[IDFunc]
	ClockOption     valueOption[func() time.Time]
	LogOption       struct{ l *slog.Logger }
	MetricsOption   struct{ m CoreMetrics }

	IDOption valueOption[uuid.UUID]
)

type coreOptions struct {
	log      *slog.Logger
	topics   *TopicRegistry
	mutators *MutatorRegistry
	pub      Publisher
	newID    IDFunc
	now      func() time.Time
	metrics  CoreMetrics
}

// CoreOption configures a [Core] (and the replay core inside a [Repository]).
type CoreOption interface{ applyToCore(*coreOptions) }

// WithPublisher sets the publisher committed events are handed to.
func WithPublisher(p Publisher) PublisherOption { return PublisherOption{v: p} }

// WithTopics sets the topic registry used to resolve Created events.
func WithTopics(r *TopicRegistry) TopicsOption { return TopicsOption{v: r} }

// WithMutators enables the registered-function dispatch strategy.
func WithMutators(m *MutatorRegistry) MutatorsOption { return MutatorsOption{v: m} }

// WithIDFunc sets the identifier generator used when Create is not handed an
// explicit id.
func WithIDFunc(f IDFunc) IDFuncOption { return IDFuncOption{v: f} }

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) ClockOption { return ClockOption{v: now} }

// WithLog sets the logger.
func WithLog(l *slog.Logger) LogOption { return LogOption{l: l} }

// WithMetrics sets the metrics implementation.
func WithMetrics(m CoreMetrics) MetricsOption { return MetricsOption{m: m} }

func (o PublisherOption) applyToCore(c *coreOptions) { c.pub = o.v }
func (o TopicsOption) applyToCore(c *coreOptions)    { c.topics = o.v }
func (o MutatorsOption) applyToCore(c *coreOptions)  { c.mutators = o.v }
func (o IDFuncOption) applyToCore(c *coreOptions)    { c.newID = o.v }
func (o ClockOption) applyToCore(c *coreOptions)     { c.now = o.v }
func (o LogOption) applyToCore(c *coreOptions)       { c.log = o.l }
func (o MetricsOption) applyToCore(c *coreOptions)   { c.metrics = o.m }

// === Create options ===

type createOptions struct {
	id uuid.UUID
}

// CreateOption configures a single [Core.Create] call.
type CreateOption interface{ applyToCreate(*createOptions) }

// WithID supplies the new entity's identifier instead of generating one.
func WithID(id uuid.UUID) IDOption { return IDOption{v: id} }

func (o IDOption) applyToCreate(c *createOptions) { c.id = o.v }
