package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasca/internal/kv"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tasca.json")

	s, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Get(ctx, "users"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	if err := s.Put(ctx, "users", []byte(`[]`)); err != nil {
		t.Fatalf("put users: %v", err)
	}
	if err := s.Put(ctx, "currentUserId", []byte("u-1")); err != nil {
		t.Fatalf("put pointer: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, "currentUserId")
	if err != nil || string(got) != "u-1" {
		t.Fatalf("expected u-1 after reopen, got %q err=%v", got, err)
	}

	if err := reopened.Delete(ctx, "currentUserId"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	again, err := New(path)
	if err != nil {
		t.Fatalf("reopen after delete: %v", err)
	}
	if _, err := again.Get(ctx, "currentUserId"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected deleted key to stay deleted, got %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should not be left behind")
	}
}

func TestFileStoreDocumentIsVersioned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasca.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Put(context.Background(), "users", []byte("[]")); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"version": 1`) {
		t.Fatalf("expected version field, got %s", data)
	}
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasca.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for corrupt document, got %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"version": 9, "entries": {}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for unsupported version, got %v", err)
	}

	moved, err := Quarantine(path)
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("quarantined file missing: %v", err)
	}
	if _, err := New(path); err != nil {
		t.Fatalf("expected fresh store after quarantine, got %v", err)
	}
}

func TestFileStoreEmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasca.json")
	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Path() != path {
		t.Fatalf("unexpected path %q", s.Path())
	}
}
