package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// stagePerm is applied to the staging directory before it becomes the output.
const stagePerm = 0o755

// ErrOutputExists is returned when committing over a non-empty output
// directory without overwrite.
var ErrOutputExists = errors.New("output directory already exists and is not empty")

// Stage is a temporary sibling directory that receives a profile while it is
// being built. Commit moves it onto the output path with a single rename so
// a failed run never leaves a half-written output behind.
type Stage struct {
	// Dir is the staging directory to write entries into.
	Dir string

	output string
	done   bool
}

// NewStage creates a staging directory next to output.
func NewStage(output string) (*Stage, error) {
	output = filepath.Clean(output)
	parent := filepath.Dir(output)

	err := os.MkdirAll(parent, stagePerm)
	if err != nil {
		return nil, fmt.Errorf("create output parent: %w", err)
	}

	dir, err := os.MkdirTemp(parent, "."+filepath.Base(output)+".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	return &Stage{Dir: dir, output: output}, nil
}

// Output returns the final output path.
func (s *Stage) Output() string {
	return s.output
}

// Commit replaces the output directory with the staged one. An existing
// non-empty output is only replaced when overwrite is set.
func (s *Stage) Commit(overwrite bool) error {
	if s.done {
		return nil
	}

	err := s.clearOutput(overwrite)
	if err != nil {
		return err
	}

	err = os.Chmod(s.Dir, stagePerm)
	if err != nil {
		return fmt.Errorf("chmod staging directory: %w", err)
	}

	err = os.Rename(s.Dir, s.output)
	if err != nil {
		return fmt.Errorf("finalize %s: %w", s.output, err)
	}

	s.done = true

	return nil
}

func (s *Stage) clearOutput(overwrite bool) error {
	info, err := os.Stat(s.output)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotProfile, s.output)
	}

	entries, err := os.ReadDir(s.output)
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}

	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("%w: %s", ErrOutputExists, s.output)
	}

	err = os.RemoveAll(s.output)
	if err != nil {
		return fmt.Errorf("remove previous output: %w", err)
	}

	return nil
}

// Discard removes the staging directory unless it was committed.
func (s *Stage) Discard() error {
	if s.done {
		return nil
	}

	s.done = true

	err := os.RemoveAll(s.Dir)
	if err != nil {
		return fmt.Errorf("remove staging directory: %w", err)
	}

	return nil
}
