// Package prooflist implements typed, persistent append-only lists whose
// Merkle tree is kept up to date on every write, so that proofs for any set
// of elements can be served at any time.
package prooflist

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"go.uber.org/zap"
)

// ProofList is an authenticated list of V backed by an IListPersistence.
//
// Readers and proof builders run in parallel; writers are serialized. Open
// at most one ProofList per name and store, use a Group to share them.
type ProofList[V any] struct {
	name   string
	store  persistence.IListPersistence
	codec  codec.Codec[V]
	hasher merkle.Hasher
	logger *zap.Logger

	mu      sync.RWMutex
	length  uint64
	deleted bool
}

// Info summarizes the authenticated state of a list.
type Info struct {
	Name       string      `json:"name"`
	Length     uint64      `json:"length"`
	Height     uint32      `json:"height"`
	MerkleRoot merkle.Hash `json:"merkle_root"`
	ListHash   merkle.Hash `json:"list_hash"`
	Hasher     string      `json:"hasher"`
}

// New opens the list stored under name, creating it empty if it doesn't
// exist yet.
func New[V any](
	name string,
	store persistence.IListPersistence,
	c codec.Codec[V],
	hasher merkle.Hasher,
	logger *zap.Logger,
) (*ProofList[V], error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	meta, err := store.LoadMeta(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", name, err)
	}

	l := &ProofList[V]{
		name:   name,
		store:  store,
		codec:  c,
		hasher: hasher,
		logger: logger,
	}

	if meta != nil {
		if meta.Hasher != "" && meta.Hasher != hasher.Name() {
			return nil, fmt.Errorf("%w: list %s was built with %s, opened with %s", ErrHasherMismatch, name, meta.Hasher, hasher.Name())
		}
		l.length = meta.Length
	}

	return l, nil
}

// Name returns the name of the list.
func (l *ProofList[V]) Name() string {
	return l.name
}

// Hasher returns the hasher of the list.
func (l *ProofList[V]) Hasher() merkle.Hasher {
	return l.hasher
}

// Len returns the number of elements.
func (l *ProofList[V]) Len() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.length
}

// IsEmpty reports whether the list has no elements.
func (l *ProofList[V]) IsEmpty() bool {
	return l.Len() == 0
}

// Get returns the element at index.
func (l *ProofList[V]) Get(index uint64) (V, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var zero V
	if index >= l.length {
		return zero, fmt.Errorf("%w: index %d, list length %d", merkle.ErrIndexOutOfRange, index, l.length)
	}

	data, err := l.loadValue(index)
	if err != nil {
		return zero, err
	}
	return l.codec.Decode(data)
}

// Last returns the final element. ok is false for an empty list.
func (l *ProofList[V]) Last() (value V, ok bool, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.length == 0 {
		return value, false, nil
	}
	data, err := l.loadValue(l.length - 1)
	if err != nil {
		return value, false, err
	}
	value, err = l.codec.Decode(data)
	return value, err == nil, err
}

// Values returns every element in index order.
func (l *ProofList[V]) Values() ([]V, error) {
	return l.Range(0, l.Len())
}

// Range returns the elements in [from, to), clipped to the list length.
func (l *ProofList[V]) Range(from, to uint64) ([]V, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if to > l.length {
		to = l.length
	}
	if from >= to {
		return []V{}, nil
	}

	raw, err := l.store.LoadValues(l.name, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load elements of %s: %w", l.name, err)
	}

	values := make([]V, len(raw))
	for i, data := range raw {
		if values[i], err = l.codec.Decode(data); err != nil {
			return nil, fmt.Errorf("failed to decode element %d: %w", from+uint64(i), err)
		}
	}
	return values, nil
}

// MerkleRoot returns the root of the tree, the zero hash for an empty list.
func (l *ProofList[V]) MerkleRoot() (merkle.Hash, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.merkleRoot()
}

// ListHash returns the hash binding the length to the Merkle root. This is
// the value that proofs are verified against.
func (l *ProofList[V]) ListHash() (merkle.Hash, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	root, err := l.merkleRoot()
	if err != nil {
		return merkle.Hash{}, err
	}
	return l.hasher.HashList(l.length, root), nil
}

// Info returns the authenticated state of the list as a single snapshot.
func (l *ProofList[V]) Info() (*Info, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	root, err := l.merkleRoot()
	if err != nil {
		return nil, err
	}
	return &Info{
		Name:       l.name,
		Length:     l.length,
		Height:     merkle.TreeHeight(l.length),
		MerkleRoot: root,
		ListHash:   l.hasher.HashList(l.length, root),
		Hasher:     l.hasher.Name(),
	}, nil
}

// GetProof builds a proof for the elements at indices against the current
// state of the list.
func (l *ProofList[V]) GetProof(indices ...uint64) (*merkle.ListProof, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return merkle.BuildProof(l.snapshot(), indices)
}

// GetRangeProof builds a proof for the elements in [from, to).
func (l *ProofList[V]) GetRangeProof(from, to uint64) (*merkle.ListProof, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return merkle.BuildRangeProof(l.snapshot(), from, to)
}

// Push appends value and returns its index.
func (l *ProofList[V]) Push(value V) (uint64, error) {
	return l.Extend([]V{value})
}

// Extend appends values in order, atomically, and returns the index of the
// first one.
func (l *ProofList[V]) Extend(values []V) (uint64, error) {
	encoded, err := l.encodeAll(values)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkWritable(); err != nil {
		return 0, err
	}

	first := l.length
	if len(encoded) == 0 {
		return first, nil
	}

	newLength := first + uint64(len(encoded))
	m := l.newMutation(newLength)
	for i, data := range encoded {
		m.putLeaf(first+uint64(i), data)
	}
	if err := m.updateRange(first, newLength-1); err != nil {
		return 0, err
	}

	if err := l.commit(m); err != nil {
		return 0, err
	}

	l.logger.Sugar().Debugw("Extended list",
		"list", l.name,
		"count", len(encoded),
		"length", newLength)
	return first, nil
}

// Set replaces the element at index.
func (l *ProofList[V]) Set(index uint64, value V) error {
	data, err := l.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode element: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkWritable(); err != nil {
		return err
	}
	if index >= l.length {
		return fmt.Errorf("%w: index %d, list length %d", merkle.ErrIndexOutOfRange, index, l.length)
	}

	m := l.newMutation(l.length)
	m.putLeaf(index, data)
	if err := m.updatePath(index); err != nil {
		return err
	}
	return l.commit(m)
}

// Truncate shortens the list to newLength elements. It is a no-op when the
// list is not longer than that.
func (l *ProofList[V]) Truncate(newLength uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.truncate(newLength)
}

// Pop removes and returns the final element. ok is false for an empty list.
func (l *ProofList[V]) Pop() (value V, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkWritable(); err != nil {
		return value, false, err
	}
	if l.length == 0 {
		return value, false, nil
	}

	data, err := l.loadValue(l.length - 1)
	if err != nil {
		return value, false, err
	}
	if value, err = l.codec.Decode(data); err != nil {
		return value, false, fmt.Errorf("failed to decode element %d: %w", l.length-1, err)
	}
	if err := l.truncate(l.length - 1); err != nil {
		return value, false, err
	}
	return value, true, nil
}

// Clear removes every element.
func (l *ProofList[V]) Clear() error {
	return l.Truncate(0)
}

func (l *ProofList[V]) truncate(newLength uint64) error {
	if err := l.checkWritable(); err != nil {
		return err
	}

	oldLength := l.length
	if newLength >= oldLength {
		return nil
	}

	m := l.newMutation(newLength)
	for index := newLength; index < oldLength; index++ {
		m.batch.DeleteValue(index)
	}

	newHeight := merkle.TreeHeight(newLength)
	for h := uint32(1); h <= merkle.TreeHeight(oldLength); h++ {
		keep := merkle.LevelWidth(newLength, h)
		if h > newHeight {
			keep = 0
		}
		for index := keep; index < merkle.LevelWidth(oldLength, h); index++ {
			m.batch.DeleteHash(merkle.ProofListKey{Index: index, Height: h})
		}
	}

	// ancestors of the new last leaf may have lost their right subtree
	if newLength > 0 {
		if err := m.updatePath(newLength - 1); err != nil {
			return err
		}
	}

	if err := l.commit(m); err != nil {
		return err
	}

	l.logger.Sugar().Debugw("Truncated list",
		"list", l.name,
		"from", oldLength,
		"to", newLength)
	return nil
}

// checkWritable must be called with mu held.
func (l *ProofList[V]) checkWritable() error {
	if l.deleted {
		return fmt.Errorf("%w: %s", ErrListDeleted, l.name)
	}
	return nil
}

func (l *ProofList[V]) encodeAll(values []V) ([][]byte, error) {
	encoded := make([][]byte, len(values))
	for i, v := range values {
		data, err := l.codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode element %d: %w", i, err)
		}
		encoded[i] = data
	}
	return encoded, nil
}

func (l *ProofList[V]) commit(m *mutation) error {
	m.batch.Touch()
	if err := l.store.ApplyBatch(l.name, m.batch); err != nil {
		return fmt.Errorf("failed to persist list %s: %w", l.name, err)
	}
	l.length = m.length
	return nil
}

func (l *ProofList[V]) merkleRoot() (merkle.Hash, error) {
	if l.length == 0 {
		return merkle.Hash{}, nil
	}
	return l.snapshot().NodeHash(merkle.RootKey(l.length))
}

func (l *ProofList[V]) loadValue(index uint64) ([]byte, error) {
	return l.snapshot().Value(index)
}

func (l *ProofList[V]) snapshot() *storeReader {
	return &storeReader{list: l.name, store: l.store, length: l.length}
}

func (l *ProofList[V]) newMutation(newLength uint64) *mutation {
	return &mutation{
		reader: l.snapshot(),
		hasher: l.hasher,
		length: newLength,
		batch:  persistence.NewBatch(persistence.ListMeta{Length: newLength, Hasher: l.hasher.Name()}),
	}
}
