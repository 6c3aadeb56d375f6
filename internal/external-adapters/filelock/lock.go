// Package filelock guards the artifact folder against concurrent writer processes.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
)

// LockFileName is created inside the guarded folder
const LockFileName = ".unitynuget.lock"

const retryDelay = 500 * time.Millisecond

// FolderLock is an OS file lock on <root>/.unitynuget.lock.
type FolderLock struct {
	lock   *flock.Flock
	path   string
	logger interfaces.Logger
}

// New creates the lock for root; the folder is created when missing.
func New(root string, logger interfaces.Logger) (*FolderLock, error) {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path of %s: %w", root, err)
	}
	if err := os.MkdirAll(absRoot, 0750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", absRoot, err)
	}
	lockPath := filepath.Join(absRoot, LockFileName)
	return &FolderLock{
		lock:   flock.New(lockPath),
		path:   lockPath,
		logger: logger,
	}, nil
}

// Path returns the lock file path
func (l *FolderLock) Path() string {
	return l.path
}

// TryLock acquires the lock without waiting and reports whether it succeeded.
func (l *FolderLock) TryLock() (bool, error) {
	locked, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	return locked, nil
}

// Lock acquires the lock, waiting for another process to release it until ctx is done.
func (l *FolderLock) Lock(ctx context.Context) error {
	locked, err := l.TryLock()
	if err != nil {
		return err
	}
	if locked {
		return nil
	}

	l.logger.Warn("another unitynuget process is writing to the artifact folder, waiting", interfaces.F("lock", l.path))
	locked, err = l.lock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", l.path)
	}
	return nil
}

// Unlock releases the lock.
func (l *FolderLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// a missing lock file means the lock is not held
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
