package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// Locker guards a data file against other processes. Readers take the lock
// shared, writers exclusive.
type Locker interface {
	Lock(ctx context.Context, shared bool) error
	Unlock() error
}

// LockerFactory creates the Locker for a lock file path
type LockerFactory func(path string) Locker

// NewFlockLocker returns a Locker backed by flock(2) on path
func NewFlockLocker(path string) Locker {
	return &flockLocker{flock: flock.New(path)}
}

type flockLocker struct {
	flock *flock.Flock
}

// Lock retries a bounded number of times before giving up. The directory of
// the lock file is created if needed.
func (l *flockLocker) Lock(ctx context.Context, shared bool) error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	try := l.flock.TryLockContext
	if shared {
		try = l.flock.TryRLockContext
	}

	for i := 0; i < lockMaxRetries; i++ {
		locked, err := try(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

func (l *flockLocker) Unlock() error {
	return l.flock.Unlock()
}
