// Package uls specializes the delimited parser for SharePoint ULS
// (Unified Logging Service) trace logs.
package uls

import (
	"io"
	"strings"

	"github.com/cloudshuttle/logshuttle/internal/parse"
)

const headerPrefix = "Timestamp "

func isHeader(line string) bool {
	return strings.HasPrefix(line, headerPrefix)
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

// NewParser builds a delimited parser configured for ULS trace logs, which
// are tab-separated with a "Timestamp ..." header line.
func NewParser(r io.Reader) *parse.Parser {
	return parse.NewParser(r, "\t", isHeader, isComment, "", parse.DefaultTimeStampFieldResolver)
}
