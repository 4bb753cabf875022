package sink

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name    string
	sendErr error
	sends   atomic.Int32
}

func (c *fakeClient) Send(ctx context.Context, records [][]byte) error {
	c.sends.Add(1)
	return c.sendErr
}
func (c *fakeClient) Close() error { return nil }

type fakeStrategy struct {
	primary       *fakeClient
	secondary     *fakeClient
	secondaryErr  error
	currentRegion RegionDescriptor
}

func (s *fakeStrategy) GetPrimaryRegionClient(ctx context.Context) (RegionalClient, RegionDescriptor, error) {
	return s.primary, RegionDescriptor{SystemName: "us-east-1"}, nil
}
func (s *fakeStrategy) GetSecondaryRegionClient(ctx context.Context) (RegionalClient, RegionDescriptor, error) {
	if s.secondaryErr != nil {
		return nil, RegionDescriptor{}, s.secondaryErr
	}
	return s.secondary, RegionDescriptor{SystemName: "us-west-2"}, nil
}
func (s *fakeStrategy) GetCurrentRegion() RegionDescriptor { return s.currentRegion }

func TestRegionalFailoverSink_FailsOverAfterMaxErrors(t *testing.T) {
	primary := &fakeClient{name: "primary", sendErr: errors.New("boom")}
	secondary := &fakeClient{name: "secondary"}
	strategy := &fakeStrategy{primary: primary, secondary: secondary}

	s, err := NewRegionalFailoverSink("pipe-1", FailoverOptions{MaxErrorsBeforeFailover: 3, MaxFailoverInterval: time.Hour}, strategy, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_ = s.Send(context.Background(), nil)
	}
	assert.Equal(t, 2, s.Throttle().ConsecutiveErrorCount())

	_ = s.Send(context.Background(), nil)
	assert.Equal(t, 0, s.Throttle().ConsecutiveErrorCount(), "throttle resets once failover succeeds")
	assert.Equal(t, "us-west-2", s.CurrentRegion().SystemName)

	require.NoError(t, s.Send(context.Background(), nil))
	assert.Equal(t, 0, s.Throttle().ConsecutiveErrorCount())
}

func TestRegionalFailoverSink_FailsOverOnTimerEvenBelowErrorCount(t *testing.T) {
	primary := &fakeClient{name: "primary", sendErr: errors.New("boom")}
	secondary := &fakeClient{name: "secondary"}
	strategy := &fakeStrategy{primary: primary, secondary: secondary}

	s, err := NewRegionalFailoverSink("pipe-1", FailoverOptions{MaxErrorsBeforeFailover: 100, MaxFailoverInterval: 20 * time.Millisecond}, strategy, nil)
	require.NoError(t, err)

	_ = s.Send(context.Background(), nil)
	time.Sleep(50 * time.Millisecond)

	_ = s.Send(context.Background(), nil)
	assert.Equal(t, "us-west-2", s.CurrentRegion().SystemName)
}

func TestRegionalFailoverSink_NoSecondaryKeepsCurrentClient(t *testing.T) {
	primary := &fakeClient{name: "primary", sendErr: errors.New("boom")}
	strategy := &fakeStrategy{primary: primary, secondaryErr: errors.New("unreachable")}

	s, err := NewRegionalFailoverSink("pipe-1", FailoverOptions{MaxErrorsBeforeFailover: 1, MaxFailoverInterval: time.Hour}, strategy, nil)
	require.NoError(t, err)

	_ = s.Send(context.Background(), nil)
	assert.Equal(t, "us-east-1", s.CurrentRegion().SystemName)
}

func TestFailoverOptions_RejectsNonPositiveValues(t *testing.T) {
	_, err := NewRegionalFailoverSink("p", FailoverOptions{MaxErrorsBeforeFailover: 0, MaxFailoverInterval: time.Minute}, &fakeStrategy{}, nil)
	assert.Error(t, err)
}
