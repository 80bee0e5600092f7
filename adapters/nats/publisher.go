package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	natsgo "github.com/nats-io/nats.go"

	"github.com/eventfold/eventfold-go/core/es"
)

// ErrPublisherClosed is returned from Publish after Close.
var ErrPublisherClosed = errors.New("nats: publisher closed")

type PublisherConfig struct {
	Connect       Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log           *slog.Logger // Log for diagnostics (optional)
	SubjectPrefix string       // SubjectPrefix for event subjects, e.g. "es" -> es.events.<topic>.<originator-id>
}

// Publisher delivers committed events to NATS, one subject per event topic and
// originator. Subscribers use wildcards to follow a topic or a single entity.
type Publisher struct {
	nc      *natsgo.Conn
	closeNc closeFunc
	log     *slog.Logger
	prefix  string

	closed atomic.Bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	return &Publisher{
		nc:      nc,
		closeNc: closeNc,
		log:     log.With(slog.String("publisher", "nats")),
		prefix:  cfg.SubjectPrefix,
	}, nil
}

// subjectEvent returns the subject for one committed event.
func (p *Publisher) subjectEvent(env es.Envelope) string {
	prefix := p.prefix
	if prefix == "" {
		prefix = "es"
	}
	return prefix + ".events." + env.Topic + "." + env.OriginatorID.String()
}

func (p *Publisher) Publish(ctx context.Context, ev es.Event) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	env, err := es.Wrap(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	subj := p.subjectEvent(env)
	if err := p.nc.Publish(subj, payload); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subj, err)
	}

	p.log.Debug(
		"published",
		slog.String("subject", subj),
		slog.Group("event",
			slog.String("topic", env.Topic),
			slog.String("originator", env.OriginatorID.String()),
			env.OriginatorVersion.SlogAttr(),
		),
	)
	return nil
}

var _ es.Publisher = (*Publisher)(nil)

func (p *Publisher) Close() error {
	if p.closed.Swap(true) {
		return ErrPublisherClosed
	}
	if p.nc != nil {
		p.nc.Drain()
		p.closeNc()
	}
	return nil
}
