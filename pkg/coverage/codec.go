package coverage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Intermediate format tokens.
const (
	TokenFile      = "file"
	TokenFunction  = "function"
	TokenBranch    = "branch"
	TokenStatement = "lcount"
)

// maxLineBytes bounds a single intermediate line. Demangled C++ function
// names can be long, so the scanner default of 64KiB is raised.
const maxLineBytes = 1 << 20

// Field counts per data token.
const (
	functionFields  = 3
	branchFields    = 2
	statementFields = 2
)

type decodeOptions struct {
	skipUnknown bool
}

// DecodeOption customizes Decode.
type DecodeOption func(*decodeOptions)

// SkipUnknownTokens makes Decode ignore lines whose token it does not know
// (for example the "version:" header newer gcov releases emit) instead of
// failing.
func SkipUnknownTokens() DecodeOption {
	return func(o *decodeOptions) { o.skipUnknown = true }
}

// Decode parses one intermediate coverage file. The path is used only in
// error messages.
func Decode(r io.Reader, path string, opts ...DecodeOption) (*Document, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	d := &decoder{path: path, opts: o, doc: NewDocument()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	for scanner.Scan() {
		d.line++

		err := d.decodeLine(strings.TrimRight(scanner.Text(), "\r"))
		if err != nil {
			return nil, err
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return d.doc, nil
}

type decoder struct {
	path    string
	opts    decodeOptions
	doc     *Document
	current *FileRecord
	line    int
}

func (d *decoder) fail(format string, args ...any) error {
	return &FormatError{Path: d.path, Line: d.line, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) decodeLine(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	token, content, ok := strings.Cut(text, ":")
	if !ok {
		return d.fail("missing ':' separator")
	}

	switch token {
	case TokenFile:
		return d.openRecord(content)
	case TokenFunction, TokenBranch, TokenStatement:
		if d.current == nil {
			return d.fail("%q line before any %q line", token, TokenFile)
		}
	default:
		if d.opts.skipUnknown {
			return nil
		}

		return d.fail("unknown token %q", token)
	}

	switch token {
	case TokenFunction:
		return d.decodeFunction(content)
	case TokenBranch:
		return d.decodeBranch(content)
	default:
		return d.decodeStatement(content)
	}
}

func (d *decoder) openRecord(name string) error {
	if name == "" {
		return d.fail("empty file name")
	}

	record := &FileRecord{Name: name}
	if !d.doc.Add(record) {
		return d.fail("duplicate record for %q", name)
	}

	d.current = record

	return nil
}

func (d *decoder) decodeFunction(content string) error {
	fields := strings.SplitN(content, ",", functionFields)
	if len(fields) != functionFields {
		return d.fail("function: want %d fields, got %d", functionFields, len(fields))
	}

	line, err := d.parseLineNumber(fields[0])
	if err != nil {
		return err
	}

	count, err := d.parseCount(fields[1])
	if err != nil {
		return err
	}

	d.current.Functions = append(d.current.Functions, Function{Line: line, Count: count, Name: fields[2]})

	return nil
}

func (d *decoder) decodeBranch(content string) error {
	fields := strings.Split(content, ",")
	if len(fields) != branchFields {
		return d.fail("branch: want %d fields, got %d", branchFields, len(fields))
	}

	line, err := d.parseLineNumber(fields[0])
	if err != nil {
		return err
	}

	state, ok := ParseBranchState(fields[1])
	if !ok {
		return d.fail("unknown branch state %q", fields[1])
	}

	d.current.Branches = append(d.current.Branches, Branch{Line: line, State: state})

	return nil
}

func (d *decoder) decodeStatement(content string) error {
	fields := strings.Split(content, ",")
	if len(fields) != statementFields {
		return d.fail("lcount: want %d fields, got %d", statementFields, len(fields))
	}

	line, err := d.parseLineNumber(fields[0])
	if err != nil {
		return err
	}

	count, err := d.parseCount(fields[1])
	if err != nil {
		return err
	}

	d.current.Statements = append(d.current.Statements, Statement{Line: line, Count: count})

	return nil
}

func (d *decoder) parseLineNumber(field string) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, d.fail("line number %q is not an integer", field)
	}

	return n, nil
}

func (d *decoder) parseCount(field string) (int64, error) {
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, d.fail("count %q is not an integer", field)
	}

	if n < 0 {
		return 0, d.fail("negative count %d", n)
	}

	return n, nil
}

// Encode writes the document in intermediate format: per record the file
// line, then all functions, all branches and all statements.
func Encode(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	var buf []byte

	for _, r := range doc.Records() {
		buf = EncodeRecord(buf[:0], r)

		_, err := bw.Write(buf)
		if err != nil {
			return fmt.Errorf("write record %s: %w", r.Name, err)
		}
	}

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}

// EncodeRecord appends the intermediate text of a single record to dst.
func EncodeRecord(dst []byte, r *FileRecord) []byte {
	dst = appendToken(dst, TokenFile)
	dst = append(dst, r.Name...)
	dst = append(dst, '\n')

	for _, f := range r.Functions {
		dst = appendToken(dst, TokenFunction)
		dst = strconv.AppendInt(dst, int64(f.Line), 10)
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, f.Count, 10)
		dst = append(dst, ',')
		dst = append(dst, f.Name...)
		dst = append(dst, '\n')
	}

	for _, b := range r.Branches {
		dst = appendToken(dst, TokenBranch)
		dst = strconv.AppendInt(dst, int64(b.Line), 10)
		dst = append(dst, ',')
		dst = append(dst, b.State.String()...)
		dst = append(dst, '\n')
	}

	for _, s := range r.Statements {
		dst = appendToken(dst, TokenStatement)
		dst = strconv.AppendInt(dst, int64(s.Line), 10)
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, s.Count, 10)
		dst = append(dst, '\n')
	}

	return dst
}

func appendToken(dst []byte, token string) []byte {
	dst = append(dst, token...)

	return append(dst, ':')
}
