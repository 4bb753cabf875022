// Package eventlog implements the Windows-style event log source as a
// polling reader over a pluggable EventRecord provider, since no real
// Windows API access is available outside Windows. The provider is an
// injected seam; a production build supplies one backed by the OS event log
// API, treating the OS service wrapper as an external collaborator whose
// contract is named but not specified here.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/envelope"
	"github.com/cloudshuttle/logshuttle/internal/logging"
)

// EventRecord is one entry read from an event log channel.
type EventRecord struct {
	Timestamp time.Time
	Channel   string
	Level     string
	EventID   int
	Message   string
}

// Provider reads event records newer than `since`, returning them in
// ascending timestamp order.
type Provider interface {
	ReadSince(ctx context.Context, since time.Time) ([]EventRecord, error)
}

// Options configures an event log source.
type Options struct {
	Channel      string        `env:"CHANNEL,required"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=10s"`
}

// Source polls a Provider on an interval and emits one envelope per record.
type Source struct {
	name     string
	opts     Options
	provider Provider
	log      *logging.Logger

	ch     chan envelope.Envelope[[]byte]
	cancel context.CancelFunc
	done   chan struct{}
	last   time.Time
}

func New(name string, opts Options, provider Provider, log *logging.Logger) *Source {
	return &Source{
		name:     name,
		opts:     opts,
		provider: provider,
		log:      log,
		ch:       make(chan envelope.Envelope[[]byte], 256),
		done:     make(chan struct{}),
	}
}

func (s *Source) Name() string                               { return s.name }
func (s *Source) Envelopes() <-chan envelope.Envelope[[]byte] { return s.ch }

func (s *Source) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.last = time.Now().UTC()
	go s.pollLoop(runCtx)
	return nil
}

func (s *Source) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return nil
}

func (s *Source) pollLoop(ctx context.Context) {
	defer close(s.done)
	interval := s.opts.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	for {
		records, err := s.provider.ReadSince(ctx, s.last)
		if err != nil {
			if s.log != nil {
				s.log.WithPipe(s.name).WithError(err).Warn("event log provider read failed")
			}
		} else {
			for _, rec := range records {
				body, err := json.Marshal(rec)
				if err != nil {
					continue
				}
				env := envelope.New(s.name, body)
				select {
				case s.ch <- env:
				case <-ctx.Done():
					return
				}
				if rec.Timestamp.After(s.last) {
					s.last = rec.Timestamp
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
