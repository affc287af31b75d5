package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrLockTimeout indicates the namespace lock could not be acquired in time.
var ErrLockTimeout = errors.New("namespace lock acquisition timed out")

// NamespaceLock is a flock(2)-based advisory lock keyed by a vector-store
// namespace. Two jobs for the same repository must not race the namespace
// existence check and creation; the lock serializes that critical section
// across worker processes sharing a staging root. The kernel releases the
// lock if the holder crashes.
type NamespaceLock struct {
	path string
	file *os.File
}

// NewNamespaceLock returns the lock for a namespace, stored under
// <stagingRoot>/.locks/<namespace>.lock.
func NewNamespaceLock(stagingRoot, namespace string) *NamespaceLock {
	return &NamespaceLock{
		path: filepath.Join(stagingRoot, ".locks", namespace+".lock"),
	}
}

// Acquire blocks until the lock is held, the timeout expires, or ctx is
// canceled.
func (l *NamespaceLock) Acquire(ctx context.Context, timeout time.Duration) error {
	if err := l.open(); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for {
		err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			l.drop()
			return fmt.Errorf("flock %s: %w", l.path, err)
		}
		if time.Now().After(deadline) {
			l.drop()
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.path)
		}

		select {
		case <-ctx.Done():
			l.drop()
			return ctx.Err()
		case <-time.After(backoff):
			if backoff *= 2; backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

// TryAcquire attempts to take the lock without blocking. Returns false
// when another holder has it.
func (l *NamespaceLock) TryAcquire() (bool, error) {
	if err := l.open(); err != nil {
		return false, err
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		l.drop()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("flock %s: %w", l.path, err)
	}
	return true, nil
}

// Release unlocks. Safe to call on an unheld lock.
func (l *NamespaceLock) Release() error {
	if l.file == nil {
		return nil
	}
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("flock unlock %s: %w", l.path, err)
	}
	return closeErr
}

func (l *NamespaceLock) open() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	l.file = f
	return nil
}

func (l *NamespaceLock) drop() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
