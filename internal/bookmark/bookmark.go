package bookmark

import (
	"bytes"
	"os"
	"sync"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

// Position is a source's committed read position: a byte offset and a line
// number into a single file, plus the file's own identity (path) and its
// last known write time, so a restarted source can detect rotation.
type Position struct {
	Path      string
	Offset    int64
	LineNum   int64
	UpdatedAt time.Time
}

func writePosition(w *Writer, p Position) error {
	path := p.Path
	if err := w.WriteNullableString(&path); err != nil {
		return err
	}
	if err := w.WriteInt64(p.Offset); err != nil {
		return err
	}
	if err := w.WriteInt64(p.LineNum); err != nil {
		return err
	}
	return w.WriteTimestamp(p.UpdatedAt)
}

func readPosition(r *Reader) (Position, error) {
	var p Position
	path, err := r.ReadNullableString()
	if err != nil {
		return p, err
	}
	if path != nil {
		p.Path = *path
	}
	if p.Offset, err = r.ReadInt64(); err != nil {
		return p, err
	}
	if p.LineNum, err = r.ReadInt64(); err != nil {
		return p, err
	}
	p.UpdatedAt, err = r.ReadTimestamp()
	return p, err
}

// Store persists one Position per source id to a directory on disk, using
// the binary framing primitives so bookmark files interoperate with any
// reader built against the same wire format.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(sourceID string) string {
	return s.dir + "/" + sourceID + ".bookmark"
}

// Load reads the last committed position for sourceID. A missing file is not
// an error: it returns the zero Position, meaning "start from the
// beginning".
func (s *Store) Load(sourceID string) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sourceID))
	if os.IsNotExist(err) {
		return Position{}, nil
	}
	if err != nil {
		return Position{}, agenterrors.FatalTransportErr("bookmark-load", err)
	}
	pos, err := readPosition(NewReader(bytes.NewReader(data)))
	if err != nil {
		return Position{}, agenterrors.ParseErr("bookmark", err)
	}
	return pos, nil
}

// Commit atomically writes pos as sourceID's bookmark, via a temp-file
// rename so a crash mid-write never corrupts the previous bookmark.
func (s *Store) Commit(sourceID string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return agenterrors.FatalTransportErr("bookmark-commit", err)
	}

	var buf bytes.Buffer
	if err := writePosition(NewWriter(&buf), pos); err != nil {
		return agenterrors.FatalTransportErr("bookmark-commit", err)
	}

	tmp := s.path(sourceID) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return agenterrors.FatalTransportErr("bookmark-commit", err)
	}
	if err := os.Rename(tmp, s.path(sourceID)); err != nil {
		return agenterrors.FatalTransportErr("bookmark-commit", err)
	}
	return nil
}
