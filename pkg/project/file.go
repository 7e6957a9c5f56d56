package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ReadFile loads a project document from an explicit path.
func ReadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project file %s: %w", path, err)
	}
	return &p, nil
}

// WriteFile stores a project document at an explicit path. The write is
// atomic: the document lands in a temporary file in the same directory
// and is renamed into place, so a crash never leaves a half-written
// project behind.
func WriteFile(path string, p *Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".project-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write project file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close project file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod project file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace project file: %w", err)
	}
	return nil
}

// FileStore keeps project documents as JSON files in a directory, one
// file per project ID.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a file-based project store. If dir is empty it
// defaults to ~/.config/rastermill/projects.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "rastermill", "projects")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save stores p under its ID, replacing any previous version.
func (s *FileStore) Save(ctx context.Context, p *Project) error {
	if p.ID == "" {
		return fmt.Errorf("project has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteFile(s.path(p.ID), p)
}

// Load retrieves the project with the given ID, or ErrNotFound.
func (s *FileStore) Load(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Delete removes the project with the given ID. Deleting an absent
// project is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove project file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// Path returns the directory holding the project files.
func (s *FileStore) Path() string { return s.dir }

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
