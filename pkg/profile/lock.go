package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrOutputLocked is returned when another run holds the output lock.
var ErrOutputLocked = errors.New("output directory is locked by another run")

// Lock is an exclusive advisory lock guarding one output directory.
// The lock file lives next to the directory, at <output>.lock, so it
// survives the staging rename.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the lock for output without waiting.
func AcquireLock(output string) (*Lock, error) {
	output = filepath.Clean(output)

	err := os.MkdirAll(filepath.Dir(output), stagePerm)
	if err != nil {
		return nil, fmt.Errorf("create output parent: %w", err)
	}

	fl := flock.New(output + lockSuffix)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}

	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, output)
	}

	return &Lock{fl: fl}, nil
}

// Release unlocks. The lock file itself stays on disk.
func (l *Lock) Release() error {
	err := l.fl.Unlock()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", l.fl.Path(), err)
	}

	return nil
}
