// Package exchange specializes the delimited parser for Exchange message
// tracking logs.
package exchange

import (
	"io"
	"strings"

	"github.com/cloudshuttle/logshuttle/internal/parse"
)

const headerPrefix = "#Fields: "

func isHeader(line string) bool {
	return strings.HasPrefix(line, headerPrefix)
}

// isComment recognizes both generic `#` comments and the Exchange-specific
// `Date` banner line.
func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "Date")
}

// NewParser builds a delimited parser configured for Exchange message
// tracking log exports, which are comma-separated with a `#Fields: ` header.
func NewParser(r io.Reader) *parse.Parser {
	return parse.NewParser(r, ",", isHeader, isComment, headerPrefix, parse.DefaultTimeStampFieldResolver)
}
