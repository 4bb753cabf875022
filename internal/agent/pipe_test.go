package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshuttle/logshuttle/internal/envelope"
	"github.com/cloudshuttle/logshuttle/internal/exprlang"
	"github.com/cloudshuttle/logshuttle/internal/sink"
)

type fakeSource struct {
	name string
	ch   chan envelope.Envelope[[]byte]
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, ch: make(chan envelope.Envelope[[]byte], 8)}
}

func (f *fakeSource) Name() string                               { return f.name }
func (f *fakeSource) Start(ctx context.Context) error             { return nil }
func (f *fakeSource) Stop(ctx context.Context) error              { close(f.ch); return nil }
func (f *fakeSource) Envelopes() <-chan envelope.Envelope[[]byte] { return f.ch }
func (f *fakeSource) emit(data []byte)                            { f.ch <- envelope.New(f.name, data) }

type fakeSink struct {
	name string

	mu      sync.Mutex
	batches [][][]byte
}

func (f *fakeSink) Name() string                    { return f.name }
func (f *fakeSink) Start(ctx context.Context) error  { return nil }
func (f *fakeSink) Stop(ctx context.Context) error   { return nil }
func (f *fakeSink) Send(ctx context.Context, records [][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeSink) allRecords() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

func TestPipe_DecoratesRecordsBeforeSink(t *testing.T) {
	src := newFakeSource("source-1")
	snk := &fakeSink{name: "sink-1"}

	p := NewPipe("pipe-1", src, []sink.Sink{snk}, nil, nil)
	p.FlushInterval = 20 * time.Millisecond

	dec, err := exprlang.ParseDecoration([]string{"env"}, map[string]string{"env": "${stage}"})
	require.NoError(t, err)
	p.SetDecoration(dec, map[string]string{"stage": "prod"})

	ctx, cancel := context.WithCancel(context.Background())
	p.Run(ctx)

	src.emit([]byte(`{"message":"hi"}`))
	time.Sleep(100 * time.Millisecond)

	cancel()
	p.Stop(context.Background())

	records := snk.allRecords()
	require.Len(t, records, 1)
	var record map[string]any
	require.NoError(t, json.Unmarshal(records[0], &record))
	assert.Equal(t, "prod", record["env"])
	assert.Equal(t, "hi", record["message"])
}
