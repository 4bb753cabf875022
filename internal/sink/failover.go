package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/logging"
)

// FailoverOptions configures the regional failover sink. Both fields are
// required positive values; invalid configuration rejects at construction.
type FailoverOptions struct {
	MaxErrorsBeforeFailover int
	MaxFailoverInterval     time.Duration
}

// Validate enforces both options are positive.
func (o FailoverOptions) Validate() error {
	if o.MaxErrorsBeforeFailover <= 0 {
		return invalidOption("MAX_ERRORS_COUNT_BEFORE_FAILOVER", o.MaxErrorsBeforeFailover)
	}
	if o.MaxFailoverInterval <= 0 {
		return invalidOption("MAX_FAILOVER_INTERVAL_IN_MINUTES", o.MaxFailoverInterval)
	}
	return nil
}

type invalidOptionError struct {
	field string
	value any
}

func (e *invalidOptionError) Error() string {
	return "sink: invalid failover option " + e.field
}

func invalidOption(field string, value any) error {
	return &invalidOptionError{field: field, value: value}
}

// RegionalFailoverSink routes Send calls through the strategy's currently
// selected client, failing over to the secondary region under error
// pressure (consecutive-error count or an elapsed max-wait timer) and
// failing back to the primary on demand.
type RegionalFailoverSink struct {
	pipeID   string
	opts     FailoverOptions
	strategy FailoverStrategy
	throttle *Throttle
	log      *logging.Logger

	mu            sync.Mutex
	current       RegionalClient
	currentRegion RegionDescriptor

	timerMu    sync.Mutex
	timer      *time.Timer
	timerFired atomic.Bool
}

// NewRegionalFailoverSink constructs the sink against its primary client.
func NewRegionalFailoverSink(pipeID string, opts FailoverOptions, strategy FailoverStrategy, log *logging.Logger) (*RegionalFailoverSink, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &RegionalFailoverSink{
		pipeID:   pipeID,
		opts:     opts,
		strategy: strategy,
		throttle: NewThrottle(),
		log:      log,
	}, nil
}

func (s *RegionalFailoverSink) Name() string { return s.pipeID }

// Start eagerly resolves the primary region client so the first Send
// doesn't pay connection-setup latency inline.
func (s *RegionalFailoverSink) Start(ctx context.Context) error {
	_, err := s.activeClient(ctx)
	return err
}

// Stop closes whichever regional client is currently active.
func (s *RegionalFailoverSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	client := s.current
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Send attempts to deliver through the current client, recording the
// outcome in the throttle and triggering failover/failback as needed.
func (s *RegionalFailoverSink) Send(ctx context.Context, records [][]byte) error {
	client, err := s.activeClient(ctx)
	if err != nil {
		return err
	}

	sendErr := client.Send(ctx, records)
	if sendErr != nil {
		s.onError(ctx, sendErr)
		return sendErr
	}
	s.onSuccess()
	return nil
}

func (s *RegionalFailoverSink) activeClient(ctx context.Context) (RegionalClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current, nil
	}
	client, region, err := s.strategy.GetPrimaryRegionClient(ctx)
	if err != nil {
		return nil, err
	}
	s.current = client
	s.currentRegion = region
	return client, nil
}

func (s *RegionalFailoverSink) onError(ctx context.Context, sendErr error) {
	count := s.throttle.RecordError(sendErr)
	s.startTimerOnce()

	triggered := count >= s.opts.MaxErrorsBeforeFailover || s.timerFired.Load()
	if !triggered {
		return
	}
	s.failover(ctx)
}

func (s *RegionalFailoverSink) onSuccess() {
	s.throttle.SetSuccess()
	s.stopTimer()
}

func (s *RegionalFailoverSink) startTimerOnce() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.opts.MaxFailoverInterval, func() {
		s.timerFired.Store(true)
	})
}

func (s *RegionalFailoverSink) stopTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerFired.Store(false)
}

// failover asks the strategy for a secondary client; if obtained, the
// throttle is reset and the new client becomes current. If none is
// available, the existing client is retained and callers continue using it.
func (s *RegionalFailoverSink) failover(ctx context.Context) {
	s.mu.Lock()
	fromRegion := s.currentRegion.SystemName
	s.mu.Unlock()

	client, region, err := s.strategy.GetSecondaryRegionClient(ctx)
	if err != nil || client == nil {
		if s.log != nil {
			s.log.WithPipe(s.pipeID).WithError(err).Error("no secondary region client available; continuing with current client")
		}
		return
	}

	s.mu.Lock()
	s.current = client
	s.currentRegion = region
	s.mu.Unlock()

	s.throttle.SetSuccess()
	s.stopTimer()

	if s.log != nil {
		s.log.Failover(s.pipeID, fromRegion, region.SystemName, "error pressure")
	}
}

// Failback attempts to return to the primary region client. On success the
// throttle is reset and the primary becomes current; on failure the
// existing client is retained and a debug log is emitted.
func (s *RegionalFailoverSink) Failback(ctx context.Context) {
	client, region, err := s.strategy.GetPrimaryRegionClient(ctx)
	if err != nil || client == nil {
		if s.log != nil {
			s.log.WithPipe(s.pipeID).Debug("primary region unavailable for failback")
		}
		return
	}

	s.mu.Lock()
	s.current = client
	s.currentRegion = region
	s.mu.Unlock()

	s.throttle.SetSuccess()
	if s.log != nil {
		s.log.Failback(s.pipeID, region.SystemName)
	}
}

func (s *RegionalFailoverSink) Throttle() *Throttle { return s.throttle }

func (s *RegionalFailoverSink) CurrentRegion() RegionDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRegion
}
