package analysis

import (
	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
)

// Engine accumulates one Analysis. An Engine is not safe for concurrent
// use; parallel work uses one Engine per goroutine and merges the results.
type Engine struct {
	analysis *Analysis
	compared int
	oneSided int
}

// NewEngine returns an Engine with an empty Analysis.
func NewEngine() *Engine {
	return &Engine{analysis: New()}
}

// Analysis returns the accumulated analysis.
func (e *Engine) Analysis() *Analysis {
	return e.analysis
}

// Process records a file seen on one side only. Every hit counts toward
// the Hamming distance and the Jaccard union since the peer has none.
func (e *Engine) Process(r *coverage.FileRecord, side Side) {
	hits := Criteria[int64]{
		Functions:  functionHits(r.Functions),
		Branches:   branchHits(r.Branches),
		Statements: statementHits(r.Statements),
	}

	delta := &AnalysisRecord{
		Name:     r.Name,
		Side:     side,
		Language: detectLanguage(r.Name),
		Coverage: coverageOf(r),
		Hamming:  hits,
		Jaccard: Criteria[Similarity]{
			Functions:  Similarity{Union: hits.Functions},
			Branches:   Similarity{Union: hits.Branches},
			Statements: Similarity{Union: hits.Statements},
		},
	}

	if side == SideAnchor || side == SideOther {
		e.analysis.OneSided[side] = addCounts(e.analysis.OneSided[side], hits)
	}

	e.analysis.add(delta)
	e.oneSided++
}

// Compare records a pairwise comparison of two aligned records of the same
// file. Coverage ratios are taken from the anchor. Misaligned records
// return the alignment error and leave the analysis unchanged.
func (e *Engine) Compare(anchor, other *coverage.FileRecord) error {
	err := merge.CheckAlignment(anchor, other)
	if err != nil {
		return err
	}

	var hamming Criteria[int64]

	var jaccard Criteria[Similarity]

	for i := range anchor.Functions {
		tally(&hamming.Functions, &jaccard.Functions, anchor.Functions[i].Count > 0, other.Functions[i].Count > 0)
	}

	for i := range anchor.Branches {
		tally(&hamming.Branches, &jaccard.Branches,
			anchor.Branches[i].State == coverage.Taken, other.Branches[i].State == coverage.Taken)
	}

	for i := range anchor.Statements {
		tally(&hamming.Statements, &jaccard.Statements, anchor.Statements[i].Count > 0, other.Statements[i].Count > 0)
	}

	e.analysis.add(&AnalysisRecord{
		Name:     anchor.Name,
		Side:     SideBoth,
		Language: detectLanguage(anchor.Name),
		Coverage: coverageOf(anchor),
		Hamming:  hamming,
		Jaccard:  jaccard,
	})
	e.compared++

	return nil
}

// Skip records a pair that could not be compared.
func (e *Engine) Skip(diag Diagnostic) {
	e.analysis.Skipped = append(e.analysis.Skipped, diag)
}

func tally(hamming *int64, jaccard *Similarity, a, b bool) {
	if a != b {
		*hamming++
	}

	if a && b {
		jaccard.Intersection++
	}

	if a || b {
		jaccard.Union++
	}
}

func coverageOf(r *coverage.FileRecord) Criteria[Ratio] {
	return Criteria[Ratio]{
		Functions:  Ratio{Hits: functionHits(r.Functions), Total: int64(len(r.Functions))},
		Branches:   Ratio{Hits: branchHits(r.Branches), Total: int64(len(r.Branches))},
		Statements: Ratio{Hits: statementHits(r.Statements), Total: int64(len(r.Statements))},
	}
}

func functionHits(fs []coverage.Function) int64 {
	var n int64

	for _, f := range fs {
		if f.Count > 0 {
			n++
		}
	}

	return n
}

func branchHits(bs []coverage.Branch) int64 {
	var n int64

	for _, b := range bs {
		if b.State == coverage.Taken {
			n++
		}
	}

	return n
}

func statementHits(ss []coverage.Statement) int64 {
	var n int64

	for _, s := range ss {
		if s.Count > 0 {
			n++
		}
	}

	return n
}
