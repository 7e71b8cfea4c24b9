// Package merge implements the element-wise set operations applied to two
// coverage records of the same source file.
package merge

import (
	"errors"
	"fmt"
	"strings"
)

// Operation selects the element-wise rule set used to combine two records.
type Operation uint8

// Supported operations.
const (
	Union Operation = iota
	Intersection
	Difference

	operationCount
)

// ErrUnknownOperation is returned by ParseOperation for unsupported names.
var ErrUnknownOperation = errors.New("unknown merge operation")

var operationNames = [operationCount]string{
	Union:        "union",
	Intersection: "intersection",
	Difference:   "difference",
}

// Operations lists every supported operation in declaration order.
func Operations() []Operation {
	return []Operation{Union, Intersection, Difference}
}

// String returns the lowercase operation name.
func (op Operation) String() string {
	if op >= operationCount {
		return fmt.Sprintf("operation(%d)", uint8(op))
	}

	return operationNames[op]
}

// Valid reports whether op is a supported operation.
func (op Operation) Valid() bool {
	return op < operationCount
}

// ParseOperation converts a name (case-insensitive) into an Operation.
func ParseOperation(name string) (Operation, error) {
	lower := strings.ToLower(strings.TrimSpace(name))

	for i, n := range operationNames {
		if n == lower {
			return Operation(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// NeutralizesRightUnmatched reports whether a record present only in the
// right operand must be reduced to the identity element. Nothing combined
// with x under union is x, so only union keeps it.
func (op Operation) NeutralizesRightUnmatched() bool {
	return op != Union
}

// NeutralizesLeftUnmatched reports whether a record present only in the left
// operand must be reduced to the identity element. Only intersection empties
// a record that has no counterpart.
func (op Operation) NeutralizesLeftUnmatched() bool {
	return op == Intersection
}
