package blob

import "sync"

// Memory implements Provider in process memory. It backs tests and gives
// each test a throwaway persistence slot.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte

	// FailPuts makes every Put return the assigned error, simulating a
	// full or unavailable backing store.
	FailPuts error
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores a copy of data under key.
func (m *Memory) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts != nil {
		return m.FailPuts
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.values[key] = stored
	return nil
}
