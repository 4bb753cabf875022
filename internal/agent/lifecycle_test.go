package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/cloudshuttle/logshuttle/internal/logging"
)

type mockComponent struct {
	name       string
	startSleep time.Duration
	stopSleep  time.Duration
	starts     atomic.Int32
	stops      atomic.Int32
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(ctx context.Context) error {
	m.starts.Add(1)
	if m.startSleep > 0 {
		time.Sleep(m.startSleep)
	}
	return nil
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.stops.Add(1)
	if m.stopSleep > 0 {
		time.Sleep(m.stopSleep)
	}
	return nil
}

func newTestLogger() (*logging.Logger, *test.Hook) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	return logging.Wrap(base, "test-agent"), hook
}

func TestLifecycleManager_HappyStartStop(t *testing.T) {
	log, _ := newTestLogger()
	source := &mockComponent{name: "source-1"}
	sink := &mockComponent{name: "sink-1"}

	lm := NewLifecycleManager([]Component{sink}, []Component{source}, log).WithBudget(500 * time.Millisecond)

	lm.Start(context.Background())
	select {
	case <-lm.StartCompleted():
	case <-time.After(time.Second):
		t.Fatal("StartCompleted never fired")
	}
	assert.Equal(t, int32(1), sink.starts.Load())
	assert.Equal(t, int32(1), source.starts.Load())

	lm.Stop(context.Background())
	select {
	case <-lm.StopCompleted():
	case <-time.After(time.Second):
		t.Fatal("StopCompleted never fired")
	}
	assert.Equal(t, int32(1), sink.stops.Load())
	assert.Equal(t, int32(1), source.stops.Load())
}

func TestLifecycleManager_SlowSourceStopDoesNotDelaySink(t *testing.T) {
	log, _ := newTestLogger()
	source := &mockComponent{name: "slow-source", stopSleep: 10 * time.Second}
	sink := &mockComponent{name: "sink-1"}

	lm := NewLifecycleManager([]Component{sink}, []Component{source}, log).WithBudget(200 * time.Millisecond)

	start := time.Now()
	lm.Stop(context.Background())
	select {
	case <-lm.StopCompleted():
	case <-time.After(5 * time.Second):
		t.Fatal("StopCompleted never fired")
	}
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), sink.stops.Load())
}

func TestLifecycleManager_SlowSinkStopLogsExactLine(t *testing.T) {
	log, hook := newTestLogger()
	budget := 100 * time.Millisecond
	sink := &mockComponent{name: "slow-sink", stopSleep: budget + 2*time.Second}
	source := &mockComponent{name: "source-1"}

	lm := NewLifecycleManager([]Component{sink}, []Component{source}, log).WithBudget(budget)

	start := time.Now()
	lm.Stop(context.Background())
	select {
	case <-lm.StopCompleted():
	case <-time.After(budget + 3*time.Second):
		t.Fatal("StopCompleted never fired in time")
	}
	assert.Less(t, time.Since(start), budget+3*time.Second)

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == ServiceName+" could not shut down all components within the maximum service stop interval." {
			found = true
		}
	}
	assert.True(t, found, "expected exact shutdown-incomplete log line")
}
