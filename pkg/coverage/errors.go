package coverage

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every FormatError via errors.Is.
var ErrFormat = errors.New("malformed intermediate coverage data")

// FormatError reports malformed intermediate text at a specific line.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}

	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// Is makes errors.Is(err, ErrFormat) true for any FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
