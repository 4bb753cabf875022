// Package iis specializes the delimited parser for IIS W3C extended log
// format. IIS shares the `#Fields: ` header sentinel with Exchange; unlike
// Exchange/ULS it commonly carries its timestamp as separate `date` and
// `time` fields rather than a single combined field, so resolution falls
// back to concatenating the pair after the single-field cases.
package iis

import (
	"io"
	"strings"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
	"github.com/cloudshuttle/logshuttle/internal/parse"
)

const (
	headerPrefix = "#Fields: "
	// dateTimeFallbackField is the sentinel TimeStampField value meaning
	// "concatenate the date and time fields", set only when neither
	// single-field case resolves.
	dateTimeFallbackField = "__date_time__"
)

func isHeader(line string) bool {
	return strings.HasPrefix(line, headerPrefix)
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

func resolveTimeStampField(mapping map[string]int) (string, error) {
	if field, err := parse.DefaultTimeStampFieldResolver(mapping); err == nil {
		return field, nil
	}
	_, hasDate := mapping["date"]
	_, hasTime := mapping["time"]
	if hasDate && hasTime {
		return dateTimeFallbackField, nil
	}
	return "", agenterrors.ParseErr("", nil).WithDetail("reason", "cannot determine date-time field")
}

// NewParser builds a delimited parser configured for IIS W3C logs, which are
// space-separated with a `#Fields: ` header.
func NewParser(r io.Reader) *parse.Parser {
	return parse.NewParser(r, " ", isHeader, isComment, headerPrefix, resolveTimeStampField)
}

// TimeStamp parses a record's timestamp, handling the two-field date+time
// fallback in addition to the base parser's single-field cases.
func TimeStamp(rec parse.Record) (time.Time, error) {
	if rec.Context.TimeStampField != dateTimeFallbackField {
		return rec.TimeStamp()
	}
	combined := strings.TrimSpace(rec.Field("date") + " " + rec.Field("time"))
	if combined == "" {
		return time.Time{}, agenterrors.ParseErr(rec.RawLine, nil).WithDetail("reason", "empty date/time fields")
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", combined); err == nil {
		return ts, nil
	}
	return time.Time{}, agenterrors.ParseErr(combined, nil).WithDetail("reason", "unrecognized IIS date/time format")
}
