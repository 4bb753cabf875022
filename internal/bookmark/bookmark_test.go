package bookmark

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_RoundTrip(t *testing.T) {
	p := Position{Path: "C:\\logs\\app.log", Offset: 12345, LineNum: 42, UpdatedAt: time.Now().UTC().Truncate(100 * time.Nanosecond)}

	var buf bytes.Buffer
	require.NoError(t, writePosition(NewWriter(&buf), p))

	got, err := readPosition(NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, p.Path, got.Path)
	assert.Equal(t, p.Offset, got.Offset)
	assert.Equal(t, p.LineNum, got.LineNum)
	assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt))
}

func TestNullableString_RoundTripsNil(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteNullableString(nil))

	got, err := NewReader(&buf).ReadNullableString()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestList_PreservesOrderAndLength(t *testing.T) {
	items := []string{"a", "bb", "ccc"}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteList(w, items, func(w *Writer, s string) error {
		v := s
		return w.WriteNullableString(&v)
	}))

	got, err := ReadList(NewReader(&buf), func(r *Reader) (string, error) {
		s, err := r.ReadNullableString()
		if err != nil {
			return "", err
		}
		return *s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestStore_LoadMissingReturnsZeroValue(t *testing.T) {
	store := NewStore(t.TempDir())
	pos, err := store.Load("unknown-source")
	require.NoError(t, err)
	assert.Equal(t, Position{}, pos)
}

func TestStore_CommitThenLoadRoundTrips(t *testing.T) {
	store := NewStore(t.TempDir())
	pos := Position{Path: "/var/log/app.log", Offset: 99, LineNum: 3, UpdatedAt: time.Now().UTC().Truncate(100 * time.Nanosecond)}
	require.NoError(t, store.Commit("source-1", pos))

	got, err := store.Load("source-1")
	require.NoError(t, err)
	assert.Equal(t, pos.Path, got.Path)
	assert.Equal(t, pos.Offset, got.Offset)
	assert.Equal(t, pos.LineNum, got.LineNum)
}
