// Package analysis computes coverage ratios, Hamming distance and Jaccard
// similarity between an anchor profile and a comparison profile.
package analysis

import (
	"errors"
	"maps"
	"slices"
)

// ErrNeedComparison is returned when an analysis has nothing to compare the anchor against.
var ErrNeedComparison = errors.New("analysis needs an anchor and at least one comparison profile")

// percentScale converts a fraction to a percentage.
const percentScale = 100

// Ratio is a hit count over a total.
type Ratio struct {
	Hits  int64 `json:"hits"  yaml:"hits"`
	Total int64 `json:"total" yaml:"total"`
}

// Percent returns hits as a percentage of total, or 0 when total is 0.
func (r Ratio) Percent() float64 {
	if r.Total == 0 {
		return 0
	}

	return percentScale * float64(r.Hits) / float64(r.Total)
}

func (r Ratio) add(o Ratio) Ratio {
	return Ratio{Hits: r.Hits + o.Hits, Total: r.Total + o.Total}
}

// Similarity holds the numerator and denominator of a Jaccard coefficient.
type Similarity struct {
	Intersection int64 `json:"intersection" yaml:"intersection"`
	Union        int64 `json:"union"        yaml:"union"`
}

// Coefficient returns intersection over union, or 0 when the union is empty.
func (s Similarity) Coefficient() float64 {
	if s.Union == 0 {
		return 0
	}

	return float64(s.Intersection) / float64(s.Union)
}

func (s Similarity) add(o Similarity) Similarity {
	return Similarity{Intersection: s.Intersection + o.Intersection, Union: s.Union + o.Union}
}

// Criteria holds one value per coverage criterion.
type Criteria[T any] struct {
	Functions  T `json:"functions"  yaml:"functions"`
	Branches   T `json:"branches"   yaml:"branches"`
	Statements T `json:"statements" yaml:"statements"`
}

func combine[T any](a, b Criteria[T], add func(T, T) T) Criteria[T] {
	return Criteria[T]{
		Functions:  add(a.Functions, b.Functions),
		Branches:   add(a.Branches, b.Branches),
		Statements: add(a.Statements, b.Statements),
	}
}

func addCount(a, b int64) int64 { return a + b }

func addRatios(a, b Criteria[Ratio]) Criteria[Ratio] {
	return combine(a, b, Ratio.add)
}

func addCounts(a, b Criteria[int64]) Criteria[int64] {
	return combine(a, b, addCount)
}

func addSimilarities(a, b Criteria[Similarity]) Criteria[Similarity] {
	return combine(a, b, Similarity.add)
}

// Side tells which profile a record was seen in.
type Side int

const (
	// SideAnchor marks records seen only in the anchor profile.
	SideAnchor Side = iota
	// SideOther marks records seen only in the comparison profile.
	SideOther
	// SideBoth marks records compared across both profiles.
	SideBoth
)

var sideNames = [...]string{"anchor", "other", "both"}

func (s Side) String() string {
	if s < 0 || int(s) >= len(sideNames) {
		return "unknown"
	}

	return sideNames[s]
}

// MarshalText renders the side by name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AnalysisRecord is the analysis of one source file.
type AnalysisRecord struct {
	Name     string               `json:"name"     yaml:"name"`
	Side     Side                 `json:"side"     yaml:"side"`
	Language string               `json:"language" yaml:"language"`
	Coverage Criteria[Ratio]      `json:"coverage" yaml:"coverage"`
	Hamming  Criteria[int64]      `json:"hamming"  yaml:"hamming"`
	Jaccard  Criteria[Similarity] `json:"jaccard"  yaml:"jaccard"`
}

func (r *AnalysisRecord) add(o *AnalysisRecord) {
	if r.Side != o.Side {
		r.Side = SideBoth
	}

	r.Coverage = addRatios(r.Coverage, o.Coverage)
	r.Hamming = addCounts(r.Hamming, o.Hamming)
	r.Jaccard = addSimilarities(r.Jaccard, o.Jaccard)
}

// Analysis is the state of one analysis run.
type Analysis struct {
	Files     map[string]*AnalysisRecord
	Coverage  Criteria[Ratio]
	Hamming   Criteria[int64]
	Jaccard   Criteria[Similarity]
	OneSided  [2]Criteria[int64]
	Languages map[string]*Criteria[Ratio]
	Skipped   []Diagnostic
}

// New returns an empty Analysis.
func New() *Analysis {
	return &Analysis{
		Files:     make(map[string]*AnalysisRecord),
		Languages: make(map[string]*Criteria[Ratio]),
	}
}

// Names returns the analyzed file names in sorted order.
func (a *Analysis) Names() []string {
	return slices.Sorted(maps.Keys(a.Files))
}

// LanguageNames returns the detected languages in sorted order.
func (a *Analysis) LanguageNames() []string {
	return slices.Sorted(maps.Keys(a.Languages))
}

// Merge adds other into a. Merging is commutative up to the order of Skipped.
func (a *Analysis) Merge(other *Analysis) {
	for _, rec := range other.Files {
		a.add(rec)
	}

	for side := range a.OneSided {
		a.OneSided[side] = addCounts(a.OneSided[side], other.OneSided[side])
	}

	a.Skipped = append(a.Skipped, other.Skipped...)
}

// add accumulates a per-file delta into the file entry, the aggregates and
// the language breakdown.
func (a *Analysis) add(delta *AnalysisRecord) {
	if rec, ok := a.Files[delta.Name]; ok {
		rec.add(delta)
	} else {
		cp := *delta
		a.Files[delta.Name] = &cp
	}

	a.Coverage = addRatios(a.Coverage, delta.Coverage)
	a.Hamming = addCounts(a.Hamming, delta.Hamming)
	a.Jaccard = addSimilarities(a.Jaccard, delta.Jaccard)

	lang, ok := a.Languages[delta.Language]
	if !ok {
		lang = &Criteria[Ratio]{}
		a.Languages[delta.Language] = lang
	}

	*lang = addRatios(*lang, delta.Coverage)
}
