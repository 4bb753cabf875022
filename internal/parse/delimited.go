// Package parse implements the delimited, headered log record parser base
// shared by the Exchange, ULS and IIS specializations.
package parse

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

// DelimitedLogContext is the mutable parsing state for one file stream:
// field separator, discovered header names, a name->column-index mapping,
// and the resolved timestamp field. It is created when a file is first
// opened, mutated exactly once by header discovery, and read concurrently by
// record constructors thereafter.
type DelimitedLogContext struct {
	FieldSeparator string
	HeaderFields   []string
	Mapping        map[string]int
	TimeStampField string

	headerDiscovered bool
}

func NewDelimitedLogContext(separator string) *DelimitedLogContext {
	return &DelimitedLogContext{
		FieldSeparator: separator,
		Mapping:        map[string]int{},
	}
}

// Record is a parsed row: the raw cells plus the context used to read them,
// and the position it was read from.
type Record struct {
	Context    *DelimitedLogContext
	Fields     []string
	RawLine    string
	BytePos    int64
	LineNumber int64
}

// Field returns the named cell, or "" if the field isn't present in this
// row's mapping.
func (r Record) Field(name string) string {
	idx, ok := r.Context.Mapping[name]
	if !ok || idx >= len(r.Fields) {
		return ""
	}
	return r.Fields[idx]
}

// TimeStamp parses the resolved timestamp field with a round-trip-kind
// layout (RFC3339Nano, falling back to RFC3339).
func (r Record) TimeStamp() (time.Time, error) {
	raw := r.Field(r.Context.TimeStampField)
	if raw == "" {
		return time.Time{}, agenterrors.ParseErr(r.RawLine, nil).WithDetail("reason", "empty timestamp field")
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, agenterrors.ParseErr(raw, nil).WithDetail("reason", "unrecognized timestamp format")
}

// HeaderSentinel recognizes a header line for one parser family.
type HeaderSentinel func(line string) bool

// CommentSentinel recognizes a comment line for one parser family.
type CommentSentinel func(line string) bool

// TimeStampFieldResolver picks the TimeStampField from a discovered mapping
// when none was explicitly configured, in the family's order of precedence.
type TimeStampFieldResolver func(mapping map[string]int) (string, error)

// Parser reads records from a line-oriented delimited stream, discovering
// the header once and splitting subsequent data lines into positional
// cells.
type Parser struct {
	Context        *DelimitedLogContext
	IsHeader       HeaderSentinel
	IsComment      CommentSentinel
	HeaderPrefix   string
	ResolveTSField TimeStampFieldResolver

	scanner    *bufio.Scanner
	bytePos    int64
	lineNumber int64
}

// NewParser constructs a Parser over r, using sep as the field separator.
func NewParser(r io.Reader, sep string, isHeader HeaderSentinel, isComment CommentSentinel, headerPrefix string, resolve TimeStampFieldResolver) *Parser {
	return &Parser{
		Context:        NewDelimitedLogContext(sep),
		IsHeader:       isHeader,
		IsComment:      isComment,
		HeaderPrefix:   headerPrefix,
		ResolveTSField: resolve,
		scanner:        bufio.NewScanner(r),
	}
}

// Next reads and returns the next data Record, skipping comment and header
// lines. Returns io.EOF when the stream is exhausted.
func (p *Parser) Next() (Record, error) {
	for p.scanner.Scan() {
		line := p.scanner.Text()
		lineLen := int64(len(line)) + 1
		p.lineNumber++
		startPos := p.bytePos
		p.bytePos += lineLen

		if line == "" {
			continue
		}
		if p.IsHeader(line) {
			if err := p.discoverHeader(line); err != nil {
				return Record{}, err
			}
			continue
		}
		if p.IsComment(line) {
			continue
		}

		fields := strings.Split(line, p.Context.FieldSeparator)
		return Record{
			Context:    p.Context,
			Fields:     fields,
			RawLine:    line,
			BytePos:    startPos,
			LineNumber: p.lineNumber,
		}, nil
	}
	if err := p.scanner.Err(); err != nil {
		return Record{}, agenterrors.TransientTransportErr("read-log-line", err)
	}
	return Record{}, io.EOF
}

func (p *Parser) discoverHeader(line string) error {
	rest := strings.TrimPrefix(line, p.HeaderPrefix)
	names := strings.Split(strings.TrimSpace(rest), p.Context.FieldSeparator)
	mapping := make(map[string]int, len(names))
	for i, name := range names {
		mapping[strings.TrimSpace(name)] = i
	}

	p.Context.HeaderFields = names
	p.Context.Mapping = mapping
	p.Context.headerDiscovered = true

	if p.Context.TimeStampField == "" {
		field, err := p.ResolveTSField(mapping)
		if err != nil {
			return err
		}
		p.Context.TimeStampField = field
	}
	return nil
}

// DefaultTimeStampFieldResolver implements the fallback precedence: an
// explicit field is handled by the caller before ResolveTSField runs; here
// we look for "date-time" then "DateTime", failing otherwise.
func DefaultTimeStampFieldResolver(mapping map[string]int) (string, error) {
	if _, ok := mapping["date-time"]; ok {
		return "date-time", nil
	}
	if _, ok := mapping["DateTime"]; ok {
		return "DateTime", nil
	}
	return "", agenterrors.ParseErr("", nil).WithDetail("reason", "cannot determine date-time field")
}
