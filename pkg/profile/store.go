// Package profile reads and writes coverage profiles: directories holding one
// intermediate coverage file per entry.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"
	cp "github.com/otiai10/copy"
	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
)

// CompressedSuffix marks entries stored as lz4 frames.
const CompressedSuffix = ".lz4"

// lockSuffix marks lock files, which are never profile entries.
const lockSuffix = ".lock"

// entryPerm is the permission of written entries.
const entryPerm = 0o644

// ErrTooLarge is returned when an entry exceeds the configured size limit.
var ErrTooLarge = errors.New("coverage entry exceeds size limit")

// ErrNotProfile is returned when a profile path is not a directory.
var ErrNotProfile = errors.New("profile is not a directory")

// Store loads and saves profile entries.
// The zero value decodes strictly with no size limit.
type Store struct {
	// MaxEntrySize bounds the decoded size of one entry in bytes. Zero disables the check.
	MaxEntrySize int64

	// SkipUnknownTokens tolerates unknown intermediate tokens while decoding.
	SkipUnknownTokens bool
}

// List returns the sorted entry names of the profile directory. Hidden
// files, subdirectories and lock files are not entries.
func (s *Store) List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotProfile, dir)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list profile %s: %w", dir, err)
	}

	names := make([]string, 0, len(dirEntries))

	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, lockSuffix) {
			continue
		}

		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// Load decodes one entry of the profile directory.
func (s *Store) Load(dir, entry string) (*coverage.Document, error) {
	path := filepath.Join(dir, entry)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if IsCompressed(entry) {
		r = lz4.NewReader(file)
	}

	if s.MaxEntrySize > 0 {
		r = &limitReader{r: r, limit: s.MaxEntrySize, remaining: s.MaxEntrySize, path: path}
	}

	var opts []coverage.DecodeOption
	if s.SkipUnknownTokens {
		opts = append(opts, coverage.SkipUnknownTokens())
	}

	doc, err := coverage.Decode(r, path, opts...)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// LoadAll decodes every entry of the profile directory.
func (s *Store) LoadAll(dir string) (map[string]*coverage.Document, error) {
	names, err := s.List(dir)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]*coverage.Document, len(names))

	for _, name := range names {
		doc, loadErr := s.Load(dir, name)
		if loadErr != nil {
			return nil, loadErr
		}

		docs[name] = doc
	}

	return docs, nil
}

// Save encodes doc into the entry, replacing any previous content atomically.
func (s *Store) Save(dir, entry string, doc *coverage.Document) error {
	path := filepath.Join(dir, entry)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(entryPerm))
	if err != nil {
		return fmt.Errorf("create entry %s: %w", path, err)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op after a successful replace.

	err = encodeTo(pending, entry, doc)
	if err != nil {
		return fmt.Errorf("write entry %s: %w", path, err)
	}

	err = pending.CloseAtomicallyReplace()
	if err != nil {
		return fmt.Errorf("replace entry %s: %w", path, err)
	}

	return nil
}

func encodeTo(w io.Writer, entry string, doc *coverage.Document) error {
	if !IsCompressed(entry) {
		return coverage.Encode(w, doc)
	}

	zw := lz4.NewWriter(w)

	err := coverage.Encode(zw, doc)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Copy copies an entry verbatim from one profile directory into another.
func (s *Store) Copy(srcDir, dstDir, entry string) error {
	src := filepath.Join(srcDir, entry)
	dst := filepath.Join(dstDir, entry)

	err := cp.Copy(src, dst, cp.Options{
		PreserveTimes: false,
		PreserveOwner: false,
		OnSymlink:     func(string) cp.SymlinkAction { return cp.Deep },
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	return nil
}

// IsCompressed reports whether the entry is stored as an lz4 frame.
func IsCompressed(entry string) bool {
	return strings.HasSuffix(entry, CompressedSuffix)
}

// limitReader fails with ErrTooLarge once more than remaining bytes are read.
type limitReader struct {
	r         io.Reader
	path      string
	limit     int64
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)

	if l.remaining < 0 {
		return n, fmt.Errorf("%w: %s is larger than %s", ErrTooLarge, l.path, humanize.Bytes(uint64(l.limit))) //nolint:gosec // limit is positive
	}

	return n, err //nolint:wrapcheck // io.EOF must pass through unwrapped.
}
