package instancelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquire_CreatesDirAndFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	l, err := Acquire(context.Background(), dir, 0, nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	defer l.Release()

	if got, want := l.Path(), filepath.Join(dir, FileName); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func TestAcquire_SecondHolderRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := Acquire(context.Background(), dir, 0, nil)
	if err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	defer first.Release()

	tests := map[string]time.Duration{
		"no wait":    0,
		"short wait": 150 * time.Millisecond,
	}
	for name, wait := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Acquire(context.Background(), dir, wait, nil)
			if !errors.Is(err, ErrAlreadyRunning) {
				t.Fatalf("second Acquire() error = %v, want ErrAlreadyRunning", err)
			}
		})
	}
}

func TestAcquire_AfterRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := Acquire(context.Background(), dir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	first.Release()
	first.Release()

	second, err := Acquire(context.Background(), dir, DefaultWait, nil)
	if err != nil {
		t.Fatalf("Acquire() after Release error: %v", err)
	}
	second.Release()
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := Acquire(context.Background(), dir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	time.AfterFunc(100*time.Millisecond, first.Release)

	second, err := Acquire(context.Background(), dir, DefaultWait, nil)
	if err != nil {
		t.Fatalf("Acquire() while holder releases error: %v", err)
	}
	second.Release()
}

func TestAcquire_ContextCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := Acquire(context.Background(), dir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Acquire(ctx, dir, DefaultWait, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestRelease_NilLock(t *testing.T) {
	t.Parallel()

	var l *Lock
	l.Release()
}
