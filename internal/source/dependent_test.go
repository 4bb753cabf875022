package source

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInnerSource struct {
	startCount atomic.Int32
	stopCount  atomic.Int32
	ch         chan envelope.Envelope[[]byte]
}

func newFakeInnerSource() *fakeInnerSource {
	return &fakeInnerSource{ch: make(chan envelope.Envelope[[]byte], 1)}
}

func (f *fakeInnerSource) Name() string { return "fake" }
func (f *fakeInnerSource) Start(ctx context.Context) error {
	f.startCount.Add(1)
	return nil
}
func (f *fakeInnerSource) Stop(ctx context.Context) error {
	f.stopCount.Add(1)
	return nil
}
func (f *fakeInnerSource) Envelopes() <-chan envelope.Envelope[[]byte] { return f.ch }

type togglingDependency struct {
	available atomic.Bool
}

func (t *togglingDependency) Name() string { return "toggle" }
func (t *togglingDependency) IsDependencyAvailable(ctx context.Context) (bool, error) {
	return t.available.Load(), nil
}
func (t *togglingDependency) Close() error { return nil }

func TestDependentSource_StartsInnerOnceAvailable(t *testing.T) {
	inner := newFakeInnerSource()
	dep := &togglingDependency{}
	dep.available.Store(false)

	var afterCalls, beforeCalls atomic.Int32
	ds := NewDependentSource(inner, dep, nil)
	ds.PollInterval = 10 * time.Millisecond
	ds.AfterDependencyAvailable = func(ctx context.Context) { afterCalls.Add(1) }
	ds.BeforeDependencyAvailable = func(ctx context.Context) { beforeCalls.Add(1) }

	require.NoError(t, ds.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), inner.startCount.Load())

	dep.available.Store(true)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), inner.startCount.Load())
	assert.Equal(t, int32(1), afterCalls.Load())

	require.NoError(t, ds.Stop(context.Background()))
	assert.Equal(t, int32(1), inner.stopCount.Load())
}
