// Package profile remembers the last identity between runs, the way a
// browser profile would. It holds no credential material.
package profile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type data struct {
	Identity  string    `json:"identity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes the profile file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path. Parent directories
// are created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the remembered identity, or "" when none is stored.
func (s *Store) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var d data
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", err
	}
	return d.Identity, nil
}

// Save stores identity atomically (write to a temp file, then rename).
func (s *Store) Save(identity string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data{Identity: identity, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the profile file. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
