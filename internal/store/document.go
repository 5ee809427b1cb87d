package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshotter persists a whole JSON-serializable document.
type Snapshotter interface {
	// Load decodes the stored document into v. It reports false when no
	// document has been written yet.
	Load(v any) (bool, error)
	// Save atomically replaces the stored document with v.
	Save(v any) error
}

// JSONDocument is a Snapshotter backed by a single JSON file. Saves write a
// temp file in the same directory and rename it over the target, so readers
// never observe a partially written document.
type JSONDocument struct {
	mu   sync.Mutex
	path string
}

// NewJSONDocument returns a document stored at path.
func NewJSONDocument(path string) *JSONDocument {
	return &JSONDocument{path: path}
}

// Path returns the file the document is stored in.
func (d *JSONDocument) Path() string {
	return d.path
}

// Load reads and decodes the document.
func (d *JSONDocument) Load(v any) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", d.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", d.path, err)
	}
	return true, nil
}

// Save encodes v and atomically replaces the document.
func (d *JSONDocument) Save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", d.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("rename %s: %w", d.path, err)
	}
	return nil
}
