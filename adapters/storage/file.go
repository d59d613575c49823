package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crossmarket/internal/errors"
)

// FileStore is a file-based storage backend: one JSON document per run,
// grouped in a directory per snapshot
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, errors.New(errors.TypeConfig, "history path is required for the file backend")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Config("failed to create history directory", err).WithContext("path", basePath)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) Save(ctx context.Context, run *StoredRun) error {
	if run.ID == "" {
		return errors.Input("run ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, safeName(run.SnapshotID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Export("failed to create snapshot directory", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return errors.Export("failed to marshal run", err)
	}
	if err := os.WriteFile(filepath.Join(dir, safeName(run.ID)+".json"), data, 0644); err != nil {
		return errors.Export("failed to write run", err).WithContext("id", run.ID)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return readRun(path)
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := []*StoredRun{}
	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		run, err := readRun(path)
		if err != nil {
			return nil
		}
		if filter.matches(run) {
			runs = append(runs, run.header())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Internal("failed to walk history", err)
	}
	return filter.page(runs), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return errors.Internal("failed to delete run", err).WithContext("id", id)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) find(id string) (string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return "", errors.Internal("failed to read history", err)
	}
	name := safeName(id) + ".json"
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.basePath, entry.Name(), name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.NotFound(id)
}

func readRun(path string) (*StoredRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Internal("failed to read run", err).WithContext("path", path)
	}
	var run StoredRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Internal("failed to unmarshal run", err).WithContext("path", path)
	}
	return &run, nil
}

// safeName keeps IDs from escaping the store directory
func safeName(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
