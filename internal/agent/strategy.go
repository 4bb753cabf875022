package agent

import (
	"context"

	"github.com/cloudshuttle/logshuttle/internal/sink"
)

// staticTwoRegionStrategy is the simplest FailoverStrategy: two
// pre-constructed regional clients, handed out as primary/secondary with no
// health probing of its own.
type staticTwoRegionStrategy struct {
	primary         sink.RegionalClient
	primaryRegion   sink.RegionDescriptor
	secondary       sink.RegionalClient
	secondaryRegion sink.RegionDescriptor
}

func newStaticTwoRegionStrategy(primary, secondary sink.RegionalClient, primaryName, secondaryName string) *staticTwoRegionStrategy {
	return &staticTwoRegionStrategy{
		primary:         primary,
		primaryRegion:   sink.RegionDescriptor{SystemName: primaryName},
		secondary:       secondary,
		secondaryRegion: sink.RegionDescriptor{SystemName: secondaryName},
	}
}

func (s *staticTwoRegionStrategy) GetPrimaryRegionClient(ctx context.Context) (sink.RegionalClient, sink.RegionDescriptor, error) {
	return s.primary, s.primaryRegion, nil
}

func (s *staticTwoRegionStrategy) GetSecondaryRegionClient(ctx context.Context) (sink.RegionalClient, sink.RegionDescriptor, error) {
	if s.secondary == nil {
		return nil, sink.RegionDescriptor{}, nil
	}
	return s.secondary, s.secondaryRegion, nil
}

func (s *staticTwoRegionStrategy) GetCurrentRegion() sink.RegionDescriptor {
	return s.primaryRegion
}
