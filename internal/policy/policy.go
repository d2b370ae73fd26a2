// Package policy persists review decisions for validation error slugs.
package policy

import (
	"sync"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Record is the stored decision for one slug.
type Record struct {
	Status taxonomy.Status `yaml:"status" json:"status"`
	// Code is informational, kept so reviewers can tell slugs apart.
	Code string `yaml:"code,omitempty" json:"code,omitempty"`
}

// MemoryStore keeps decisions in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (m *MemoryStore) Get(slug string) (taxonomy.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[slug]; ok {
		return r.Status, nil
	}
	return taxonomy.StatusUnreviewed, nil
}

func (m *MemoryStore) Set(slug string, status taxonomy.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[slug]
	r.Status = status
	m.records[slug] = r
	return nil
}

// Put stores a full record.
func (m *MemoryStore) Put(slug string, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[slug] = r
	return nil
}

// List returns a copy of every record.
func (m *MemoryStore) List() (map[string]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}
