package fingerprint

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Fingerprint
	calls   MemoryCalls

	// LoadErr and SaveErr, when set, are returned by every Load/Save.
	LoadErr error
	SaveErr error
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Load int
	Save int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Fingerprint)}
}

func (m *MemoryStore) Load(_ context.Context, site string) (*Fingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Load++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	fp, ok := m.records[site]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

func (m *MemoryStore) Save(_ context.Context, site string, fp Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Save++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records[site] = fp
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Calls returns the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
