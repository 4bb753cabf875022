package agent

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cloudshuttle/logshuttle/internal/config"
	"github.com/cloudshuttle/logshuttle/internal/emf"
	"github.com/cloudshuttle/logshuttle/internal/logging"
)

// MetricEmitter periodically renders the configured metric definitions as a
// CloudWatch embedded-metric-format JSON line, written raw to Out rather
// than through the structured logger so a log-based metrics collector can
// scrape the exact EMF wire format from the line itself.
type MetricEmitter struct {
	Definitions []*config.MetricDefinition
	Out         io.Writer
	Log         *logging.Logger
}

// NewMetricEmitter builds an emitter writing to stdout.
func NewMetricEmitter(defs []*config.MetricDefinition, log *logging.Logger) *MetricEmitter {
	return &MetricEmitter{Definitions: defs, Out: os.Stdout, Log: log}
}

// Emit applies every configured definition to a single fresh scope and
// writes its serialized envelope. A no-op when no definitions are
// configured, so the housekeeping schedule stays harmless by default.
func (e *MetricEmitter) Emit() {
	if len(e.Definitions) == 0 {
		return
	}

	scope := emf.NewMetricScope()
	for _, def := range e.Definitions {
		def.Apply(scope)
	}

	raw, err := json.Marshal(scope)
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).Warn("failed to marshal EMF metric scope")
		}
		return
	}
	raw = append(raw, '\n')
	if _, err := e.Out.Write(raw); err != nil && e.Log != nil {
		e.Log.WithError(err).Warn("failed to write EMF metric scope")
	}
}
