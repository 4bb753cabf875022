// Package source defines the Source contract and the dependency-aware
// supervisor runtime wrapping it.
package source

import (
	"context"

	"github.com/cloudshuttle/logshuttle/internal/envelope"
)

// Source produces envelopes from an input channel.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Envelopes() <-chan envelope.Envelope[[]byte]
}
