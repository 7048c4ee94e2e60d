package localbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrQuotaExceeded is returned when a write would push the stored bytes past
// the configured quota.
var ErrQuotaExceeded = errors.New("localbackend: storage quota exceeded")

// Storage is a string-keyed byte store, the shape of a browser's
// localStorage.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// MemoryStorage keeps everything in process. Quota <= 0 means unlimited.
type MemoryStorage struct {
	mu    sync.Mutex
	data  map[string][]byte
	Quota int
}

func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}, Quota: quota}
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if over(m.data, key, value, m.Quota) {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func over(data map[string][]byte, key string, value []byte, quota int) bool {
	if quota <= 0 {
		return false
	}
	size := len(key) + len(value)
	for k, v := range data {
		if k != key {
			size += len(k) + len(v)
		}
	}
	return size > quota
}

// FileStorage persists every key in one JSON document, rewritten atomically
// on each change.
type FileStorage struct {
	mu    sync.Mutex
	path  string
	data  map[string][]byte
	Quota int
}

func OpenFileStorage(path string, quota int) (*FileStorage, error) {
	fs := &FileStorage{path: path, data: map[string][]byte{}, Quota: quota}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localbackend: read %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("localbackend: parse %s: %w", path, err)
	}
	for k, v := range raw {
		fs.data[k] = []byte(v)
	}
	return fs, nil
}

func (f *FileStorage) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (f *FileStorage) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("localbackend: value for %q is not JSON", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if over(f.data, key, value, f.Quota) {
		return ErrQuotaExceeded
	}
	prev, had := f.data[key]
	f.data[key] = append([]byte(nil), value...)
	if err := f.flush(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *FileStorage) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flush()
}

// flush writes to a temp file and renames it over the target. Callers hold f.mu.
func (f *FileStorage) flush() error {
	raw := make(map[string]json.RawMessage, len(f.data))
	for k, v := range f.data {
		raw[k] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("localbackend: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, f.path)
}
