package merge

import (
	"fmt"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
)

// CheckAlignment verifies that a and b describe the same source file with
// position-aligned entities: equal sequence lengths and equal line numbers
// at every index.
func CheckAlignment(a, b *coverage.FileRecord) error {
	if a.Name != b.Name {
		return &AlignmentError{File: a.Name + " / " + b.Name, Kind: KindName, Index: -1}
	}

	err := alignLines(a.Name, KindFunctions, len(a.Functions), len(b.Functions), func(i int) (int, int) {
		return a.Functions[i].Line, b.Functions[i].Line
	})
	if err != nil {
		return err
	}

	err = alignLines(a.Name, KindBranches, len(a.Branches), len(b.Branches), func(i int) (int, int) {
		return a.Branches[i].Line, b.Branches[i].Line
	})
	if err != nil {
		return err
	}

	return alignLines(a.Name, KindStatements, len(a.Statements), len(b.Statements), func(i int) (int, int) {
		return a.Statements[i].Line, b.Statements[i].Line
	})
}

func alignLines(file, kind string, leftLen, rightLen int, lines func(i int) (int, int)) error {
	if leftLen != rightLen {
		return &AlignmentError{File: file, Kind: kind, Index: -1, LeftLen: leftLen, RightLen: rightLen}
	}

	for i := range leftLen {
		left, right := lines(i)
		if left != right {
			return &AlignmentError{
				File: file, Kind: kind, Index: i,
				LeftLen: leftLen, RightLen: rightLen,
				LeftLine: left, RightLine: right,
			}
		}
	}

	return nil
}

// Records replaces a with op(a, b). The records must be aligned; on an
// AlignmentError a is left unchanged.
func Records(op Operation, a, b *coverage.FileRecord) error {
	if !op.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	err := CheckAlignment(a, b)
	if err != nil {
		return err
	}

	combine := countRules[op]
	states := &branchTable[op]

	for i := range a.Functions {
		a.Functions[i].Count = combine(a.Functions[i].Count, b.Functions[i].Count)
	}

	for i := range a.Branches {
		a.Branches[i].State = states[a.Branches[i].State][b.Branches[i].State]
	}

	for i := range a.Statements {
		a.Statements[i].Count = combine(a.Statements[i].Count, b.Statements[i].Count)
	}

	return nil
}

// Neutralize turns r into the identity element: every count zero and every
// branch not executed.
func Neutralize(r *coverage.FileRecord) {
	for i := range r.Functions {
		r.Functions[i].Count = 0
	}

	for i := range r.Branches {
		r.Branches[i].State = coverage.NotExecuted
	}

	for i := range r.Statements {
		r.Statements[i].Count = 0
	}
}

// Identity returns a neutralized copy of r.
func Identity(r *coverage.FileRecord) *coverage.FileRecord {
	clone := r.Clone()
	Neutralize(clone)

	return clone
}

// NeutralizeDocument neutralizes every record of doc.
func NeutralizeDocument(doc *coverage.Document) {
	for _, r := range doc.Records() {
		Neutralize(r)
	}
}

// Documents replaces a with op(a, b) record by record. Records present in
// both are combined with Records. A record only in a is neutralized when op
// empties unmatched left operands; a record only in b is appended as a copy,
// neutralized unless op keeps unmatched right operands.
//
// All alignment checks run before anything is modified, so on error a is
// unchanged.
func Documents(op Operation, a, b *coverage.Document) error {
	if !op.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	for _, left := range a.Records() {
		right, ok := b.Get(left.Name)
		if !ok {
			continue
		}

		err := CheckAlignment(left, right)
		if err != nil {
			return err
		}
	}

	for _, left := range a.Records() {
		right, ok := b.Get(left.Name)
		if !ok {
			if op.NeutralizesLeftUnmatched() {
				Neutralize(left)
			}

			continue
		}

		err := Records(op, left, right)
		if err != nil {
			return err
		}
	}

	for _, right := range b.Records() {
		if a.Has(right.Name) {
			continue
		}

		added := right.Clone()
		if op.NeutralizesRightUnmatched() {
			Neutralize(added)
		}

		a.Add(added)
	}

	return nil
}
