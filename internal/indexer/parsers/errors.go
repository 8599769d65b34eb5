package parsers

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFile is returned when no extractor handles a file extension.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ParseError reports syntactically invalid source. Extraction of the file is
// abandoned; no partial table is produced.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
