package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONFile persists a single JSON document to disk with atomic writes.
// The background context flushes cache, stats, auth, and settings state
// through instances of this type so they survive process restarts.
type JSONFile struct {
	mu   sync.RWMutex
	path string
}

// NewJSONFile creates a JSONFile store at the given path.
// An empty path disables persistence: Load reports no data, Save is a no-op.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the document into v. Returns false if no file exists yet.
func (f *JSONFile) Load(v interface{}) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.path == "" {
		return false, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	return true, nil
}

// Save writes v to disk atomically using temp file + rename.
func (f *JSONFile) Save(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.path == "" {
		return nil
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpFile := f.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmpFile, f.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}
