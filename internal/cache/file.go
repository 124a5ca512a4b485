package cache

import (
	"context"

	"linkguard/internal/storage"
)

// FileStore implements Store using a local JSON file.
// This is suitable for single-instance deployments.
type FileStore struct {
	file *storage.JSONFile
}

// NewFileStore creates a new local file-based cache store.
func NewFileStore(path string) *FileStore {
	return &FileStore{file: storage.NewJSONFile(path)}
}

// Load retrieves the cache snapshot from the local file.
func (s *FileStore) Load(_ context.Context) (map[string]Entry, error) {
	var snapshot map[string]Entry
	ok, err := s.file.Load(&snapshot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return snapshot, nil
}

// Save stores the cache snapshot to the local file.
func (s *FileStore) Save(_ context.Context, entries map[string]Entry) error {
	return s.file.Save(entries)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
