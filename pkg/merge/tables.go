package merge

import "github.com/Sumatoshi-tech/scovat/pkg/coverage"

const (
	nx = coverage.NotExecuted
	nt = coverage.NotTaken
	tk = coverage.Taken
)

// branchTable resolves the merged branch state, indexed [op][a][b] with
// states ordered NotExecuted, NotTaken, Taken.
var branchTable = [operationCount][coverage.StateCount][coverage.StateCount]coverage.BranchState{
	Union: {
		nx: {nx: nx, nt: nt, tk: tk},
		nt: {nx: nt, nt: nt, tk: tk},
		tk: {nx: tk, nt: tk, tk: tk},
	},
	Intersection: {
		nx: {nx: nx, nt: nx, tk: nx},
		nt: {nx: nx, nt: nt, tk: nt},
		tk: {nx: nx, nt: nt, tk: tk},
	},
	Difference: {
		nx: {nx: nx, nt: nx, tk: nx},
		nt: {nx: nt, nt: nx, tk: nt},
		tk: {nx: tk, nt: tk, tk: nx},
	},
}

// countRule combines two execution counts.
type countRule func(a, b int64) int64

var countRules = [operationCount]countRule{
	Union: func(a, b int64) int64 {
		return a + b
	},
	Intersection: func(a, b int64) int64 {
		if a == 0 || b == 0 {
			return 0
		}

		return a + b
	},
	Difference: func(a, b int64) int64 {
		if b != 0 {
			return 0
		}

		return a
	},
}

// BranchState returns op(a, b) for a single branch.
func BranchState(op Operation, a, b coverage.BranchState) coverage.BranchState {
	return branchTable[op][a][b]
}

// Count returns op(a, b) for a single statement or function count.
func Count(op Operation, a, b int64) int64 {
	return countRules[op](a, b)
}
