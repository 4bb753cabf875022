// Package sink defines the Sink contract, per-sink error throttling, and the
// regional failover sink, plus concrete regional client backends.
package sink

import "context"

// Sink accepts envelopes and forwards them to a destination.
type Sink interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, records [][]byte) error
}

// RegionDescriptor names a region a failover strategy selected, for logging.
type RegionDescriptor struct {
	SystemName string
}

// RegionalClient is the minimal shape a regional backend must expose to be
// driven by the failover sink: sending a batch of already-serialized
// records.
type RegionalClient interface {
	Send(ctx context.Context, records [][]byte) error
	Close() error
}

// HealthCheck probes a client before selection: (reachable, latencyMs).
type HealthCheck func(ctx context.Context, client RegionalClient) (bool, int64)

// FailoverStrategy selects primary/secondary regional clients and reports
// the currently active region.
type FailoverStrategy interface {
	GetPrimaryRegionClient(ctx context.Context) (RegionalClient, RegionDescriptor, error)
	GetSecondaryRegionClient(ctx context.Context) (RegionalClient, RegionDescriptor, error)
	GetCurrentRegion() RegionDescriptor
}
