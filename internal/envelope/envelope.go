// Package envelope defines the generic record wrapper that flows from
// sources through parsers to sinks.
package envelope

import (
	"time"

	"github.com/google/uuid"
)

// Envelope wraps a parsed record of type T with metadata needed by
// downstream sinks and bookmarking.
type Envelope[T any] struct {
	Data      T
	Timestamp time.Time
	Source    string
	TraceID   string
	Tags      map[string]string
}

// New wraps data with a fresh trace id and the current time.
func New[T any](source string, data T) Envelope[T] {
	return Envelope[T]{
		Data:      data,
		Timestamp: time.Now().UTC(),
		Source:    source,
		TraceID:   uuid.New().String(),
		Tags:      map[string]string{},
	}
}

// WithTag returns a copy of the envelope with the given tag set.
func (e Envelope[T]) WithTag(key, value string) Envelope[T] {
	tags := make(map[string]string, len(e.Tags)+1)
	for k, v := range e.Tags {
		tags[k] = v
	}
	tags[key] = value
	e.Tags = tags
	return e
}

// Batch groups envelopes that should be flushed together by a sink.
type Batch[T any] struct {
	ID    string
	Items []Envelope[T]
}

// NewBatch stamps a fresh trace id for the batch as a whole.
func NewBatch[T any](items []Envelope[T]) Batch[T] {
	return Batch[T]{ID: uuid.New().String(), Items: items}
}

func (b Batch[T]) Len() int { return len(b.Items) }
