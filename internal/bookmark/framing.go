// Package bookmark implements the little-endian binary framing primitives
// used by on-disk bookmarks, and the bookmark file format built on them.
package bookmark

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// unixEpochTicks is the number of 100-nanosecond ticks between the fixed
// 0001-01-01T00:00:00Z epoch and the Unix epoch. Ticks are computed from
// UnixNano directly rather than via time.Time.Sub/time.Duration, since
// Duration is an int64 count of nanoseconds and saturates at about 292
// years — far less than the ~2025 years between the two epochs.
const unixEpochTicks = 621355968000000000

func timeToTicks(t time.Time) int64 {
	return t.UTC().UnixNano()/100 + unixEpochTicks
}

func ticksToTime(ticks int64) time.Time {
	return time.Unix(0, (ticks-unixEpochTicks)*100).UTC()
}

// Writer frames primitive values onto an underlying stream.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteNullableString writes a boolean presence marker, then, if present, a
// 32-bit length prefix followed by the UTF-8 body.
func (w *Writer) WriteNullableString(s *string) error {
	if s == nil {
		return binary.Write(w.w, binary.LittleEndian, uint8(0))
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint8(1)); err != nil {
		return err
	}
	body := []byte(*s)
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(body))); err != nil {
		return err
	}
	_, err := w.w.Write(body)
	return err
}

// WriteMemoryBlock writes a 64-bit length followed by the raw bytes.
func (w *Writer) WriteMemoryBlock(b []byte) error {
	if err := binary.Write(w.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

// WriteTimestamp writes t as a signed 64-bit tick count from the fixed
// epoch.
func (w *Writer) WriteTimestamp(t time.Time) error {
	return binary.Write(w.w, binary.LittleEndian, timeToTicks(t))
}

// WriteInt64 writes a raw signed 64-bit integer, used by callers framing
// scalar payloads (e.g. byte offsets, line numbers).
func (w *Writer) WriteInt64(v int64) error {
	return binary.Write(w.w, binary.LittleEndian, v)
}

// WriteList writes a 32-bit count followed by each item serialized by fn, in
// order.
func WriteList[T any](w *Writer, items []T, fn func(*Writer, T) error) error {
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := fn(w, item); err != nil {
			return err
		}
	}
	return nil
}

// WriteEnvelope writes a timestamp followed by the payload serializer's
// output.
func WriteEnvelope[T any](w *Writer, timestamp time.Time, payload T, fn func(*Writer, T) error) error {
	if err := w.WriteTimestamp(timestamp); err != nil {
		return err
	}
	return fn(w, payload)
}

// Reader parses primitive values from an underlying stream.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (r *Reader) ReadNullableString() (*string, error) {
	var marker uint8
	if err := binary.Read(r.r, binary.LittleEndian, &marker); err != nil {
		return nil, err
	}
	if marker == 0 {
		return nil, nil
	}
	var length uint32
	if err := binary.Read(r.r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, err
	}
	s := string(body)
	return &s, nil
}

func (r *Reader) ReadMemoryBlock() ([]byte, error) {
	var length uint64
	if err := binary.Read(r.r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > (1 << 32) {
		return nil, fmt.Errorf("bookmark: implausible memory block length %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (r *Reader) ReadTimestamp() (time.Time, error) {
	var ticks int64
	if err := binary.Read(r.r, binary.LittleEndian, &ticks); err != nil {
		return time.Time{}, err
	}
	return ticksToTime(ticks), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	var v int64
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}

func ReadList[T any](r *Reader, fn func(*Reader) (T, error)) ([]T, error) {
	var count uint32
	if err := binary.Read(r.r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	items := make([]T, 0, count)
	for i := uint32(0); i < count; i++ {
		item, err := fn(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func ReadEnvelope[T any](r *Reader, fn func(*Reader) (T, error)) (time.Time, T, error) {
	ts, err := r.ReadTimestamp()
	if err != nil {
		var zero T
		return time.Time{}, zero, err
	}
	payload, err := fn(r)
	return ts, payload, err
}
