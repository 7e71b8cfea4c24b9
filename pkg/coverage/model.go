// Package coverage provides the in-memory model of gcov intermediate coverage
// records and the codec that reads and writes their line-oriented text form.
package coverage

import "slices"

// BranchState is the execution state of a single branch arc.
type BranchState uint8

// Branch states. The zero value is NotExecuted so that a freshly allocated
// branch is already neutral.
const (
	NotExecuted BranchState = iota
	NotTaken
	Taken
)

// StateCount is the number of distinct branch states.
const StateCount = 3

// Branch state tokens as they appear in the intermediate format.
const (
	tokenTaken       = "taken"
	tokenNotTaken    = "nottaken"
	tokenNotExecuted = "notexec"
)

// String returns the intermediate-format token for the state.
func (s BranchState) String() string {
	switch s {
	case Taken:
		return tokenTaken
	case NotTaken:
		return tokenNotTaken
	case NotExecuted:
		return tokenNotExecuted
	default:
		return "unknown"
	}
}

// ParseBranchState converts an intermediate-format token into a BranchState.
func ParseBranchState(token string) (BranchState, bool) {
	switch token {
	case tokenTaken:
		return Taken, true
	case tokenNotTaken:
		return NotTaken, true
	case tokenNotExecuted:
		return NotExecuted, true
	default:
		return NotExecuted, false
	}
}

// Statement is the execution count of one source line.
type Statement struct {
	Line  int
	Count int64
}

// Branch is one branch arc on a source line.
type Branch struct {
	Line  int
	State BranchState
}

// Function is the entry count of one function.
type Function struct {
	Line  int
	Count int64
	Name  string
}

// FileRecord holds every coverage fact recorded for one source file.
// Entity order is significant: two records for the same source file are
// aligned by position.
type FileRecord struct {
	Name       string
	Functions  []Function
	Branches   []Branch
	Statements []Statement
}

// Clone returns a deep copy of the record.
func (r *FileRecord) Clone() *FileRecord {
	return &FileRecord{
		Name:       r.Name,
		Functions:  slices.Clone(r.Functions),
		Branches:   slices.Clone(r.Branches),
		Statements: slices.Clone(r.Statements),
	}
}

// Document is the ordered set of records decoded from one intermediate file.
// A single gcov output may describe several sources (headers included by a
// translation unit), so a document maps source names to records.
type Document struct {
	records []*FileRecord
	index   map[string]int
}

// NewDocument creates a document holding the given records in order.
// Later records replace earlier ones with the same name.
func NewDocument(records ...*FileRecord) *Document {
	doc := &Document{index: make(map[string]int, len(records))}

	for _, r := range records {
		doc.Put(r)
	}

	return doc
}

// Records returns the records in document order.
func (d *Document) Records() []*FileRecord {
	return d.records
}

// Len returns the number of records.
func (d *Document) Len() int {
	return len(d.records)
}

// Get returns the record for the named source file.
func (d *Document) Get(name string) (*FileRecord, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}

	return d.records[i], true
}

// Has reports whether the document holds a record for name.
func (d *Document) Has(name string) bool {
	_, ok := d.index[name]

	return ok
}

// Add appends a record. It returns false, leaving the document unchanged,
// if a record with the same name already exists.
func (d *Document) Add(r *FileRecord) bool {
	if d.index == nil {
		d.index = make(map[string]int)
	}

	if _, exists := d.index[r.Name]; exists {
		return false
	}

	d.index[r.Name] = len(d.records)
	d.records = append(d.records, r)

	return true
}

// Put adds a record or replaces the one with the same name in place.
func (d *Document) Put(r *FileRecord) {
	if i, ok := d.index[r.Name]; ok {
		d.records[i] = r

		return
	}

	d.Add(r)
}

// Names returns the source names in document order.
func (d *Document) Names() []string {
	names := make([]string, len(d.records))
	for i, r := range d.records {
		names[i] = r.Name
	}

	return names
}
