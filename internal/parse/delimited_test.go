package parse

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleHeader(line string) bool  { return strings.HasPrefix(line, "#Fields: ") }
func simpleComment(line string) bool { return strings.HasPrefix(line, "#") && !simpleHeader(line) }

func TestParser_DiscoversHeaderAndSplitsRows(t *testing.T) {
	input := "#Fields: date-time,action,result\n2024-01-01T00:00:00Z,send,ok\n"
	p := NewParser(strings.NewReader(input), ",", simpleHeader, simpleComment, "#Fields: ", DefaultTimeStampFieldResolver)

	rec, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "date-time", p.Context.TimeStampField)
	assert.Equal(t, "send", rec.Field("action"))
	assert.Equal(t, "ok", rec.Field("result"))

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParser_TimeStampFieldPrecedence(t *testing.T) {
	input := "#Fields: DateTime,action\n2024-01-01T00:00:00Z,send\n"
	p := NewParser(strings.NewReader(input), ",", simpleHeader, simpleComment, "#Fields: ", DefaultTimeStampFieldResolver)
	_, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "DateTime", p.Context.TimeStampField)
}

func TestParser_UnresolvedTimeStampFieldIsFatal(t *testing.T) {
	input := "#Fields: action,result\nsend,ok\n"
	p := NewParser(strings.NewReader(input), ",", simpleHeader, simpleComment, "#Fields: ", DefaultTimeStampFieldResolver)
	_, err := p.Next()
	require.Error(t, err)
}

func TestRecord_TimeStampParsesResolvedField(t *testing.T) {
	input := "#Fields: date-time,action\n2024-03-05T10:20:30Z,send\n"
	p := NewParser(strings.NewReader(input), ",", simpleHeader, simpleComment, "#Fields: ", DefaultTimeStampFieldResolver)
	rec, err := p.Next()
	require.NoError(t, err)

	ts, err := rec.TimeStamp()
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
}
