// Package filewatch implements the directory-backed log file source: a
// directory poller combined with per-file bookmarks and the delimited
// parser layer.
package filewatch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/bookmark"
	"github.com/cloudshuttle/logshuttle/internal/envelope"
	"github.com/cloudshuttle/logshuttle/internal/logging"
	"github.com/cloudshuttle/logshuttle/internal/parse"
)

// ParserFactory builds a fresh record parser over an open file, one of the
// exchange/uls/iis NewParser constructors.
type ParserFactory func(r io.Reader) *parse.Parser

// Options configures a directory-backed source.
type Options struct {
	Directory    string        `env:"DIRECTORY,required"`
	Glob         string        `env:"GLOB,default=*.log"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=5s"`
}

// Source tails files matching Options.Glob in Options.Directory, resuming
// each from its committed bookmark and emitting one envelope per parsed
// record.
type Source struct {
	name    string
	opts    Options
	newParser ParserFactory
	bookmarks *bookmark.Store
	log     *logging.Logger

	ch     chan envelope.Envelope[[]byte]
	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string, opts Options, newParser ParserFactory, bookmarks *bookmark.Store, log *logging.Logger) *Source {
	return &Source{
		name:      name,
		opts:      opts,
		newParser: newParser,
		bookmarks: bookmarks,
		log:       log,
		ch:        make(chan envelope.Envelope[[]byte], 256),
		done:      make(chan struct{}),
	}
}

func (s *Source) Name() string                                        { return s.name }
func (s *Source) Envelopes() <-chan envelope.Envelope[[]byte]          { return s.ch }

func (s *Source) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.pollLoop(runCtx)
	return nil
}

func (s *Source) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return nil
}

func (s *Source) pollLoop(ctx context.Context) {
	defer close(s.done)
	interval := s.opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for {
		files, err := s.matchingFiles()
		if err != nil && s.log != nil {
			s.log.WithPipe(s.name).WithError(err).Warn("failed to list source directory")
		}
		for _, f := range files {
			s.tailOnce(ctx, f)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (s *Source) matchingFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.opts.Directory, s.opts.Glob))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// tailOnce reads from the file's bookmark position through its current
// end-of-file once, committing an updated bookmark as each record is
// emitted so a restart resumes without re-reading already-shipped lines.
func (s *Source) tailOnce(ctx context.Context, path string) {
	sourceID := filepath.Base(path)
	pos, err := s.bookmarks.Load(sourceID)
	if err != nil && s.log != nil {
		s.log.WithPipe(s.name).WithError(err).Warn("failed to load bookmark; starting from beginning")
	}

	f, err := os.Open(path)
	if err != nil {
		if s.log != nil {
			s.log.WithPipe(s.name).WithError(err).Warn("failed to open source file")
		}
		return
	}
	defer f.Close()

	if pos.Path == path && pos.Offset > 0 {
		if _, err := f.Seek(pos.Offset, io.SeekStart); err != nil {
			if s.log != nil {
				s.log.WithPipe(s.name).WithError(err).Warn("failed to seek to bookmark; restarting from beginning")
			}
		}
	}

	p := s.newParser(f)
	lineNum := pos.LineNum
	for {
		if ctx.Err() != nil {
			return
		}
		rec, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if s.log != nil {
				s.log.ParseFailure(s.name, err, nil)
			}
			continue
		}

		lineNum++
		env := envelope.New(s.name, []byte(rec.RawLine))
		select {
		case s.ch <- env:
		case <-ctx.Done():
			return
		}

		newPos := bookmark.Position{Path: path, Offset: rec.BytePos + int64(len(rec.RawLine)) + 1, LineNum: lineNum, UpdatedAt: time.Now().UTC()}
		if err := s.bookmarks.Commit(sourceID, newPos); err != nil && s.log != nil {
			s.log.WithPipe(s.name).WithError(err).Warn("failed to commit bookmark")
		}
	}
}
