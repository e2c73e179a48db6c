package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileBackend keeps every key in one JSON object on disk. Each mutation
// rewrites the file through a temp file and rename.
type FileBackend struct {
	FilePath string
	mu       sync.RWMutex
	data     map[string]json.RawMessage
}

func NewFileBackend(filePath string) (*FileBackend, error) {
	f := &FileBackend{FilePath: filePath, data: make(map[string]json.RawMessage)}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	if err := f.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", filePath, err)
	}
	return f, nil
}

var _ Backend = (*FileBackend)(nil)

func (f *FileBackend) loadFromFile() error {
	raw, err := os.ReadFile(f.FilePath)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &f.data)
}

func (f *FileBackend) saveToFile() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.FilePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.FilePath)
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (f *FileBackend) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	f.data[key] = append(json.RawMessage(nil), value...)
	if err := f.saveToFile(); err != nil {
		f.restore(key, prev, had)
		return err
	}
	return nil
}

// restore undoes an in-memory change whose write to disk failed.
func (f *FileBackend) restore(key string, prev json.RawMessage, had bool) {
	if had {
		f.data[key] = prev
	} else {
		delete(f.data, key)
	}
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, ok := f.data[key]
	if !ok {
		return nil
	}
	delete(f.data, key)
	if err := f.saveToFile(); err != nil {
		f.restore(key, prev, true)
		return err
	}
	return nil
}

func (f *FileBackend) Keys(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
