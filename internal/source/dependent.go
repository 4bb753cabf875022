package source

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/dependency"
	"github.com/cloudshuttle/logshuttle/internal/envelope"
	"github.com/cloudshuttle/logshuttle/internal/logging"
)

// State is the dependent source's supervisor state machine position.
type State int

const (
	Unknown State = iota
	Probing
	Available
	Unavailable
	Stopped
)

const defaultPollInterval = time.Minute

// DependentSource wraps an inner Source so it stays quiescent while its
// Dependency reports unavailable, and resumes seamlessly once it recovers.
// BeforeDependencyAvailable/AfterDependencyAvailable are invoked exactly
// once per transition and may be overridden by embedding callers.
type DependentSource struct {
	Inner        Source
	Dependency   dependency.Dependency
	PollInterval time.Duration
	Log          *logging.Logger

	BeforeDependencyAvailable func(ctx context.Context)
	AfterDependencyAvailable  func(ctx context.Context)

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDependentSource(inner Source, dep dependency.Dependency, log *logging.Logger) *DependentSource {
	d := &DependentSource{
		Inner:        inner,
		Dependency:   dep,
		PollInterval: defaultPollInterval,
		Log:          log,
		done:         make(chan struct{}),
	}
	d.setState(Unknown)
	return d
}

func (d *DependentSource) setState(s State) { d.state.Store(int32(s)) }

func (d *DependentSource) Name() string { return d.Inner.Name() }

// Envelopes forwards the inner source's channel. It is only meaningful once
// the dependency has first become available and the inner source started.
func (d *DependentSource) Envelopes() <-chan envelope.Envelope[[]byte] { return d.Inner.Envelopes() }

// Start begins the supervisor loop in the background and returns promptly.
func (d *DependentSource) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.supervise(runCtx)
	return nil
}

func (d *DependentSource) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	select {
	case <-d.done:
	case <-ctx.Done():
	}
	d.setState(Stopped)
	return d.Inner.Stop(ctx)
}

func (d *DependentSource) supervise(ctx context.Context) {
	defer close(d.done)

	pollInterval := d.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	d.setState(Probing)
	prev := Probing
	started := false

	for {
		if ctx.Err() != nil {
			d.setState(Stopped)
			return
		}

		available, err := d.Dependency.IsDependencyAvailable(ctx)
		if err != nil {
			available = false
			if d.Log != nil {
				d.Log.WithPipe(d.Name()).WithError(err).Warn("dependency check failed; treating as unavailable")
			}
		}

		if available {
			d.setState(Available)
			if prev != Available {
				if d.AfterDependencyAvailable != nil {
					d.AfterDependencyAvailable(ctx)
				}
				if d.Log != nil {
					d.Log.WithPipe(d.Name()).Info("dependency recovered; resuming collection")
				}
				if !started {
					if err := d.Inner.Start(ctx); err != nil && d.Log != nil {
						d.Log.WithPipe(d.Name()).WithError(err).Warn("inner source failed to start")
					}
					started = true
				}
			}
			prev = Available
		} else {
			d.setState(Unavailable)
			if prev == Available || prev == Unknown || prev == Probing {
				if d.BeforeDependencyAvailable != nil {
					d.BeforeDependencyAvailable(ctx)
				}
			}
			if d.Log != nil {
				d.Log.WithPipe(d.Name()).Warn("dependency unavailable; collection paused")
			}
			prev = Unavailable
		}

		select {
		case <-ctx.Done():
			d.setState(Stopped)
			return
		case <-time.After(pollInterval):
		}

		if available {
			// Once available and started, defer entirely to the inner
			// source's own lifecycle; stop polling aggressively and just
			// watch for it going away again on the same cadence.
			continue
		}
	}
}

// CurrentState exposes the supervisor's state for diagnostics and tests.
func (d *DependentSource) CurrentState() State { return State(d.state.Load()) }
