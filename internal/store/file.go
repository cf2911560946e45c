package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists keys as a flat JSON object. The file is read once at
// open and rewritten on every Set.
type FileStore struct {
	mu       sync.Mutex
	values   map[string]string
	filePath string
}

// OpenFileStore loads the store from filePath. A missing or unreadable file
// yields an empty store; values that are not strings are dropped one by one.
func OpenFileStore(filePath string) (*FileStore, error) {
	values := loadValues(filePath)
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &FileStore{values: values, filePath: filePath}, nil
}

func (f *FileStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.save(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) save() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, f.filePath); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func loadValues(filePath string) map[string]string {
	values := make(map[string]string)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[WARN] state file %s unreadable, starting empty: %v", filePath, err)
		}
		return values
	}
	if len(data) == 0 {
		return values
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("[WARN] state file %s is corrupt, starting empty: %v", filePath, err)
		return values
	}
	for key, msg := range raw {
		var v string
		if err := json.Unmarshal(msg, &v); err != nil {
			log.Printf("[WARN] dropping non-string %s=%s from %s", key, string(msg), filePath)
			continue
		}
		values[key] = v
	}
	return values
}
