package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quote.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New([]string{path}, func(string) {})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	w.Stop()
	w.Stop() // second call must not panic

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestNewRejectsUnwatchableDir(t *testing.T) {
	if _, err := New([]string{filepath.Join(t.TempDir(), "missing", "quote.txt")}, func(string) {}); err == nil {
		t.Error("New accepted a path under a nonexistent directory")
	}
}
