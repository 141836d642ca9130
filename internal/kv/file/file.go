// Package file implements kv.BlobStore on top of a single JSON document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tasca/internal/kv"
)

const documentVersion = 1

// ErrCorrupt is returned by New when the document exists but cannot be decoded.
var ErrCorrupt = errors.New("data file is corrupt")

type document struct {
	Version int               `json:"version"`
	Entries map[string][]byte `json:"entries"`
}

// Store keeps every entry in memory and rewrites the whole document on
// each change. Writes go to a temp file that is renamed over the original.
type Store struct {
	mu       sync.RWMutex
	filePath string
	entries  map[string][]byte
}

func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{filePath: path, entries: make(map[string][]byte)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read data file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse data file: %w: %v", ErrCorrupt, err)
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("parse data file: %w: unsupported version %d", ErrCorrupt, doc.Version)
	}
	if doc.Entries != nil {
		s.entries = doc.Entries
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = append([]byte(nil), value...)
	if err := s.persistLocked(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	if !had {
		return nil
	}
	delete(s.entries, key)
	if err := s.persistLocked(); err != nil {
		s.entries[key] = prev
		return err
	}
	return nil
}

// Quarantine moves a corrupt document at path aside so a fresh one can be
// started, and returns where it went.
func Quarantine(path string) (string, error) {
	dst := path + ".corrupt"
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("quarantine data file: %w", err)
	}
	return dst, nil
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(document{Version: documentVersion, Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
