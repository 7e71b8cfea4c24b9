package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
)

type ratioDoc struct {
	Hits    int64   `json:"hits" yaml:"hits"`
	Total   int64   `json:"total" yaml:"total"`
	Percent float64 `json:"percent" yaml:"percent"`
}

type fileDoc struct {
	Name     string                      `json:"name" yaml:"name"`
	Side     string                      `json:"side" yaml:"side"`
	Language string                      `json:"language" yaml:"language"`
	Coverage analysis.Criteria[ratioDoc] `json:"coverage" yaml:"coverage"`
	Jaccard  analysis.Criteria[float64]  `json:"jaccard" yaml:"jaccard"`
	Hamming  analysis.Criteria[int64]    `json:"hamming" yaml:"hamming"`
}

type summaryDoc struct {
	Coverage   analysis.Criteria[ratioDoc] `json:"coverage" yaml:"coverage"`
	Jaccard    analysis.Criteria[float64]  `json:"jaccard" yaml:"jaccard"`
	Hamming    analysis.Criteria[int64]    `json:"hamming" yaml:"hamming"`
	AnchorOnly analysis.Criteria[int64]    `json:"anchor_only" yaml:"anchor_only"`
	OtherOnly  analysis.Criteria[int64]    `json:"other_only" yaml:"other_only"`
}

type languageDoc struct {
	Language string                      `json:"language" yaml:"language"`
	Coverage analysis.Criteria[ratioDoc] `json:"coverage" yaml:"coverage"`
}

type skippedDoc struct {
	Entry  string `json:"entry" yaml:"entry"`
	Record string `json:"record" yaml:"record"`
	Error  string `json:"error" yaml:"error"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type document struct {
	Files     []fileDoc     `json:"files" yaml:"files"`
	Summary   summaryDoc    `json:"summary" yaml:"summary"`
	Languages []languageDoc `json:"languages" yaml:"languages"`
	Skipped   []skippedDoc  `json:"skipped" yaml:"skipped"`
}

func newDocument(a *analysis.Analysis) document {
	doc := document{
		Files:     make([]fileDoc, 0, len(a.Files)),
		Languages: make([]languageDoc, 0, len(a.Languages)),
		Skipped:   make([]skippedDoc, 0, len(a.Skipped)),
		Summary: summaryDoc{
			Coverage:   ratios(a.Coverage),
			Jaccard:    coefficients(a.Jaccard),
			Hamming:    a.Hamming,
			AnchorOnly: a.OneSided[analysis.SideAnchor],
			OtherOnly:  a.OneSided[analysis.SideOther],
		},
	}

	for _, name := range a.Names() {
		rec := a.Files[name]

		doc.Files = append(doc.Files, fileDoc{
			Name:     rec.Name,
			Side:     rec.Side.String(),
			Language: rec.Language,
			Coverage: ratios(rec.Coverage),
			Jaccard:  coefficients(rec.Jaccard),
			Hamming:  rec.Hamming,
		})
	}

	for _, lang := range a.LanguageNames() {
		doc.Languages = append(doc.Languages, languageDoc{Language: lang, Coverage: ratios(*a.Languages[lang])})
	}

	for _, d := range a.Skipped {
		doc.Skipped = append(doc.Skipped, skippedDoc{Entry: d.Entry, Record: d.Record, Error: d.Err.Error(), Detail: d.Detail})
	}

	return doc
}

func ratioOf(r analysis.Ratio) ratioDoc {
	return ratioDoc{Hits: r.Hits, Total: r.Total, Percent: r.Percent()}
}

func ratios(c analysis.Criteria[analysis.Ratio]) analysis.Criteria[ratioDoc] {
	return analysis.Criteria[ratioDoc]{
		Functions:  ratioOf(c.Functions),
		Branches:   ratioOf(c.Branches),
		Statements: ratioOf(c.Statements),
	}
}

func coefficients(c analysis.Criteria[analysis.Similarity]) analysis.Criteria[float64] {
	return analysis.Criteria[float64]{
		Functions:  c.Functions.Coefficient(),
		Branches:   c.Branches.Coefficient(),
		Statements: c.Statements.Coefficient(),
	}
}

func renderJSON(w io.Writer, a *analysis.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(newDocument(a))
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, a *analysis.Analysis) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd // two-space YAML indent

	err := enc.Encode(newDocument(a))
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	return nil
}
