package filelock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFolderLock(t *testing.T) {
	root := filepath.Join(t.TempDir(), "unity_packages")

	first, err := New(root, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root folder not created: %v", err)
	}
	if filepath.Base(first.Path()) != LockFileName {
		t.Errorf("Path() = %s", first.Path())
	}

	if err := first.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	second, err := New(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	locked, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	if locked {
		t.Fatal("second lock acquired while the first is held")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := second.Lock(ctx); err == nil {
		t.Fatal("Lock() should give up when the context expires")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := second.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	if err := second.Unlock(); err != nil {
		t.Fatal(err)
	}
}
