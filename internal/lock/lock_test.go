package lock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
}

func TestAcquireContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	defer first.Release()

	// 第二次获取必须立即失败，从不排队
	if _, err := Acquire(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Acquire() = %v, want ErrAlreadyRunning", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	second.Release()
}
