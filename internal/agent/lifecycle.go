// Package agent implements the agent lifecycle manager: bounded-time start
// and stop of a pipeline's sources and sinks, with error isolation and
// exact diagnostic log lines the hosting service's tests depend on.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/logging"
)

const (
	ServiceName = "logshuttle-agent"
	// MaximumServiceOperationDuration is the wall-clock budget for a full
	// start or stop pass.
	MaximumServiceOperationDuration = 30 * time.Second
)

// Component is the common contract every source and sink must implement to
// plug into the lifecycle manager.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// LifecycleManager brings a configured pipeline's sinks and sources up and
// down under a bounded time budget, isolating slow or failing components so
// one never blocks or aborts another.
type LifecycleManager struct {
	log    *logging.Logger
	budget time.Duration

	sinks   []Component
	sources []Component

	startCompleted chan struct{}
	stopCompleted  chan struct{}
}

// NewLifecycleManager constructs a manager over an already-instantiated set
// of sinks and sources; the caller's factory/catalog layer is responsible
// for turning configuration into these concrete components.
func NewLifecycleManager(sinks, sources []Component, log *logging.Logger) *LifecycleManager {
	if log == nil {
		log = logging.Default()
	}
	return &LifecycleManager{
		log:            log,
		budget:         MaximumServiceOperationDuration,
		sinks:          sinks,
		sources:        sources,
		startCompleted: make(chan struct{}),
		stopCompleted:  make(chan struct{}),
	}
}

// WithBudget overrides the default operation budget, mainly for tests.
func (lm *LifecycleManager) WithBudget(d time.Duration) *LifecycleManager {
	lm.budget = d
	return lm
}

// StartCompleted is closed once Start's bounded wait finishes, whether or
// not every component actually finished starting in time.
func (lm *LifecycleManager) StartCompleted() <-chan struct{} { return lm.startCompleted }

// StopCompleted is closed once Stop's bounded wait finishes.
func (lm *LifecycleManager) StopCompleted() <-chan struct{} { return lm.stopCompleted }

// Start instantiates sinks first, sources second, kicks off each
// component's Start concurrently with errors isolated, and returns
// promptly. StartCompleted fires when every component has started or the
// budget elapses, whichever comes first.
func (lm *LifecycleManager) Start(ctx context.Context) {
	all := append(append([]Component{}, lm.sinks...), lm.sources...)
	go lm.runBounded(ctx, all, func(c Component, ctx context.Context) error { return c.Start(ctx) }, lm.startCompleted, true)
}

// Stop requests every source to stop first, then every sink, isolating
// errors the same way. StopCompleted fires when every component has stopped
// or the budget elapses.
func (lm *LifecycleManager) Stop(ctx context.Context) {
	ordered := append(append([]Component{}, lm.sources...), lm.sinks...)
	go lm.runBounded(ctx, ordered, func(c Component, ctx context.Context) error { return c.Stop(ctx) }, lm.stopCompleted, false)
}

// runBounded kicks off op against every component concurrently, each
// wrapped so a panic or error never reaches the others, then waits for all
// of them up to lm.budget. If the budget elapses first, it logs the exact
// diagnostic line the caller's timing properties depend on and fires signal
// regardless of what is still outstanding.
func (lm *LifecycleManager) runBounded(ctx context.Context, components []Component, op func(Component, context.Context) error, signal chan struct{}, isStart bool) {
	opCtx, cancel := context.WithTimeout(ctx, lm.budget)
	defer cancel()

	finished := make(chan string, len(components))

	for _, c := range components {
		go func(c Component) {
			defer func() {
				if r := recover(); r != nil {
					lm.log.WithPipe(c.Name()).Error(fmt.Sprintf("component panicked: %v", r))
				}
				finished <- c.Name()
			}()
			if err := op(c, opCtx); err != nil {
				lm.log.WithPipe(c.Name()).WithError(err).Warn("component operation failed; isolated from the rest of the pipeline")
			}
		}(c)
	}

	remaining := map[string]bool{}
	for _, c := range components {
		remaining[c.Name()] = true
	}

	deadline := time.After(lm.budget)
loop:
	for len(remaining) > 0 {
		select {
		case name := <-finished:
			delete(remaining, name)
		case <-deadline:
			lm.logDeadlineElapsed(remaining, isStart)
			break loop
		}
	}

	close(signal)
}

func (lm *LifecycleManager) logDeadlineElapsed(remaining map[string]bool, isStart bool) {
	if isStart {
		lm.log.StartupSlow(ServiceName, lm.budget)
		return
	}
	lm.log.ShutdownIncomplete(ServiceName, names(remaining))
}

func names(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	return out
}
