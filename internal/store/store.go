package store

import "sync"

// Keys under which the accrual counters are persisted.
const (
	KeyTokens  = "greenconnect-tokens"
	KeyMinutes = "greenconnect-time"
	KeyCO2     = "greenconnect-co2"
	KeyTasks   = "greenconnect-tasks"
)

// Store is a string key-value port for durable client-local state.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// MemoryStore keeps values in process memory. Used in tests and when no
// durable backend is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
