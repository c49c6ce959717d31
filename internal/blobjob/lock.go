package blobjob

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the destination directory while a
// download holds it.
const LockFileName = ".parproc.lock"

// ErrDestLocked is returned by Lock when another process is downloading
// into the same directory.
var ErrDestLocked = errors.New("blobjob: destination is locked by another run")

type destLock struct {
	path string
	fl   *flock.Flock
}

func lockDest(dir string) (*destLock, error) {
	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("blobjob: acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDestLocked, path)
	}
	return &destLock{path: path, fl: fl}, nil
}

func (l *destLock) release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("blobjob: release lock %s: %w", l.path, err)
	}
	return nil
}
