package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IListPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Lists by name
	lists map[string]*memoryList

	// Closed flag
	closed bool
}

type memoryList struct {
	meta   persistence.ListMeta
	values map[uint64][]byte
	hashes map[merkle.ProofListKey]merkle.Hash
}

var _ persistence.IListPersistence = (*MemoryPersistence)(nil)

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL LISTS WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set PROOFLIST_PERSISTENCE_TYPE=badger for production")

	return &MemoryPersistence{
		lists: make(map[string]*memoryList),
	}
}

// LoadMeta returns the metadata of a list.
func (m *MemoryPersistence) LoadMeta(list string) (*persistence.ListMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	l, exists := m.lists[list]
	if !exists {
		return nil, nil // Not found is not an error
	}

	meta := l.meta
	return &meta, nil
}

// ListNames returns all list names sorted ascending.
func (m *MemoryPersistence) ListNames() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	names := make([]string, 0, len(m.lists))
	for name := range m.lists {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// LoadValue returns the element at index.
func (m *MemoryPersistence) LoadValue(list string, index uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	l, exists := m.lists[list]
	if !exists {
		return nil, nil
	}
	value, exists := l.values[index]
	if !exists {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// LoadValues returns the elements in [from, to).
func (m *MemoryPersistence) LoadValues(list string, from, to uint64) ([][]byte, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range [%d, %d)", from, to)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	l := m.lists[list]
	values := make([][]byte, 0, to-from)
	for i := from; i < to; i++ {
		var value []byte
		var exists bool
		if l != nil {
			value, exists = l.values[i]
		}
		if !exists {
			return nil, fmt.Errorf("element %d of list %s is missing", i, list)
		}
		values = append(values, append([]byte{}, value...))
	}

	return values, nil
}

// LoadNodeHash returns the node hash stored at key.
func (m *MemoryPersistence) LoadNodeHash(list string, key merkle.ProofListKey) (*merkle.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	l, exists := m.lists[list]
	if !exists {
		return nil, nil
	}
	hash, exists := l.hashes[key]
	if !exists {
		return nil, nil
	}

	return &hash, nil
}

// ApplyBatch applies every change of batch under one lock.
func (m *MemoryPersistence) ApplyBatch(list string, batch *persistence.Batch) error {
	if batch == nil {
		return fmt.Errorf("cannot apply nil Batch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	l, exists := m.lists[list]
	if !exists {
		l = &memoryList{
			values: make(map[uint64][]byte),
			hashes: make(map[merkle.ProofListKey]merkle.Hash),
		}
		m.lists[list] = l
	}

	for _, index := range batch.DeletedValues {
		delete(l.values, index)
	}
	for _, key := range batch.DeletedHashes {
		delete(l.hashes, key)
	}
	for index, value := range batch.Values {
		l.values[index] = append([]byte{}, value...)
	}
	for key, hash := range batch.Hashes {
		l.hashes[key] = hash
	}
	l.meta = batch.Meta

	return nil
}

// DeleteList removes a list.
func (m *MemoryPersistence) DeleteList(list string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.lists, list)
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}

	return nil
}
