package agent

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cloudshuttle/logshuttle/internal/exprlang"
	"github.com/cloudshuttle/logshuttle/internal/logging"
	"github.com/cloudshuttle/logshuttle/internal/metrics"
	"github.com/cloudshuttle/logshuttle/internal/sink"
	"github.com/cloudshuttle/logshuttle/internal/source"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = 5 * time.Second
)

// Pipe binds one already-started source to one or more already-started
// sinks, batching envelopes by count or time before forwarding to every
// configured sink. Pipe deliberately does not own its source's or sinks'
// Start/Stop: those remain top-level Components the LifecycleManager starts
// (sinks first) and stops (sources first) on its own schedule. A Pipe is
// wired up only after StartCompleted and torn down before Stop begins.
type Pipe struct {
	ID            string
	Source        source.Source
	Sinks         []sink.Sink
	BatchSize     int
	FlushInterval time.Duration

	log       *logging.Logger
	metrics   *metrics.Metrics
	decorator *decorator

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPipe(id string, src source.Source, sinks []sink.Sink, log *logging.Logger, m *metrics.Metrics) *Pipe {
	return &Pipe{
		ID:            id,
		Source:        src,
		Sinks:         sinks,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		log:           log,
		metrics:       m,
		done:          make(chan struct{}),
	}
}

func (p *Pipe) Name() string { return p.ID }

// SetDecoration attaches a parsed decoration (output field -> templated
// expression) applied to every record before it reaches this pipe's sinks.
// A nil decoration disables decoration entirely, leaving records untouched.
func (p *Pipe) SetDecoration(dec *exprlang.Decoration, globals map[string]string) {
	if dec == nil {
		p.decorator = nil
		return
	}
	var entry *logrus.Entry
	if p.log != nil {
		entry = p.log.WithPipe(p.ID)
	}
	p.decorator = newDecorator(dec, globals, entry)
}

// Run starts the batching fan-out loop in the background and returns
// immediately; call Stop to drain and terminate it.
func (p *Pipe) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx)
}

// Stop cancels the fan-out loop and waits for its final flush to finish.
func (p *Pipe) Stop(ctx context.Context) {
	if p.cancel != nil {
		p.cancel()
	}
	select {
	case <-p.done:
	case <-ctx.Done():
	}
}

func (p *Pipe) run(ctx context.Context) {
	defer close(p.done)

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := p.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	buf := make([][]byte, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(buf) == 0 {
			return
		}
		p.fanOut(ctx, buf)
		buf = make([][]byte, 0, batchSize)
	}

	for {
		select {
		case env, ok := <-p.Source.Envelopes():
			if !ok {
				flush()
				return
			}
			data := env.Data
			if p.decorator != nil {
				data = p.decorator.apply(data)
			}
			buf = append(buf, data)
			if p.metrics != nil {
				p.metrics.SourceEnvelopesEmitted.WithLabelValues(ServiceName, p.Source.Name()).Inc()
			}
			if len(buf) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

func (p *Pipe) fanOut(ctx context.Context, records [][]byte) {
	for _, s := range p.Sinks {
		start := time.Now()
		err := s.Send(ctx, records)
		if p.metrics != nil {
			p.metrics.SinkFlushDuration.WithLabelValues(ServiceName, s.Name()).Observe(time.Since(start).Seconds())
			status := "ok"
			if err != nil {
				status = "error"
			}
			p.metrics.SinkFlushTotal.WithLabelValues(ServiceName, s.Name(), status).Inc()
		}
		if err != nil && p.log != nil {
			p.log.WithPipe(p.ID).WithError(err).Warn("sink flush failed")
		}
	}
}
