package merge

import (
	"errors"
	"fmt"
)

// ErrMisaligned is matched by every AlignmentError via errors.Is.
var ErrMisaligned = errors.New("coverage records are not aligned")

// Entity kinds named in alignment errors.
const (
	KindName       = "name"
	KindFunctions  = "functions"
	KindBranches   = "branches"
	KindStatements = "statements"
)

// AlignmentError reports that two records of the same source file cannot be
// combined position by position. Index is -1 when the sequence lengths
// differ; otherwise it is the first index whose line numbers disagree.
type AlignmentError struct {
	File      string
	Kind      string
	Index     int
	LeftLen   int
	RightLen  int
	LeftLine  int
	RightLine int
}

func (e *AlignmentError) Error() string {
	switch {
	case e.Kind == KindName:
		return fmt.Sprintf("%s: cannot align records of different files", e.File)
	case e.Index < 0:
		return fmt.Sprintf("%s: %s length mismatch (%d vs %d)", e.File, e.Kind, e.LeftLen, e.RightLen)
	default:
		return fmt.Sprintf("%s: %s[%d] line mismatch (%d vs %d)", e.File, e.Kind, e.Index, e.LeftLine, e.RightLine)
	}
}

// Is makes errors.Is(err, ErrMisaligned) true for any AlignmentError.
func (e *AlignmentError) Is(target error) bool {
	return target == ErrMisaligned
}
