package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNamespaceLockAcquireRelease(t *testing.T) {
	root := t.TempDir()
	l := NewNamespaceLock(root, "octo.demo")

	if err := l.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	// Reacquire after release must succeed.
	if err := l.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("reacquire error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestNamespaceLockContention(t *testing.T) {
	root := t.TempDir()

	first := NewNamespaceLock(root, "octo.demo")
	if err := first.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	second := NewNamespaceLock(root, "octo.demo")
	held, err := second.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if held {
		t.Error("TryAcquire() succeeded while lock was held")
	}

	// A different namespace is independent.
	other := NewNamespaceLock(root, "octo.other")
	held, err = other.TryAcquire()
	if err != nil {
		t.Fatal(err)
	}
	if !held {
		t.Error("TryAcquire() on independent namespace failed")
	}
	other.Release()
}

func TestNamespaceLockTimeout(t *testing.T) {
	root := t.TempDir()

	holder := NewNamespaceLock(root, "octo.demo")
	if err := holder.Acquire(context.Background(), time.Second); err != nil {
		t.Fatal(err)
	}
	defer holder.Release()

	waiter := NewNamespaceLock(root, "octo.demo")
	err := waiter.Acquire(context.Background(), 50*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("error = %v, want ErrLockTimeout", err)
	}
}

func TestNamespaceLockContextCancel(t *testing.T) {
	root := t.TempDir()

	holder := NewNamespaceLock(root, "octo.demo")
	if err := holder.Acquire(context.Background(), time.Second); err != nil {
		t.Fatal(err)
	}
	defer holder.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	waiter := NewNamespaceLock(root, "octo.demo")
	err := waiter.Acquire(ctx, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestNamespaceLockReleaseUnheld(t *testing.T) {
	l := NewNamespaceLock(t.TempDir(), "octo.demo")
	if err := l.Release(); err != nil {
		t.Errorf("Release() on unheld lock error = %v", err)
	}
}
