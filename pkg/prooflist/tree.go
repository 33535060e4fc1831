package prooflist

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
)

// storeReader exposes a stored list at a fixed length to the proof builder.
// The caller must hold the list's read lock while it is in use.
type storeReader struct {
	list   string
	store  persistence.IListPersistence
	length uint64
}

var _ merkle.NodeReader = (*storeReader)(nil)

func (r *storeReader) Length() uint64 {
	return r.length
}

func (r *storeReader) Value(index uint64) ([]byte, error) {
	data, err := r.store.LoadValue(r.list, index)
	if err != nil {
		return nil, fmt.Errorf("failed to load element %d of %s: %w", index, r.list, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: element %d of %s is missing", ErrCorrupted, index, r.list)
	}
	return data, nil
}

func (r *storeReader) NodeHash(key merkle.ProofListKey) (merkle.Hash, error) {
	hash, err := r.store.LoadNodeHash(r.list, key)
	if err != nil {
		return merkle.Hash{}, fmt.Errorf("failed to load node %s of %s: %w", key, r.list, err)
	}
	if hash == nil {
		return merkle.Hash{}, fmt.Errorf("%w: node %s of %s is missing", ErrCorrupted, key, r.list)
	}
	return *hash, nil
}

// mutation stages the writes of one list operation. Hashes written earlier
// in the same mutation shadow the stored ones.
type mutation struct {
	reader *storeReader
	hasher merkle.Hasher
	length uint64
	batch  *persistence.Batch
}

func (m *mutation) putLeaf(index uint64, value []byte) {
	m.batch.PutValue(index, value)
	m.batch.PutHash(merkle.LeafKey(index), m.hasher.HashLeaf(value))
}

func (m *mutation) nodeHash(key merkle.ProofListKey) (merkle.Hash, error) {
	if hash, ok := m.batch.Hashes[key]; ok {
		return hash, nil
	}
	return m.reader.NodeHash(key)
}

// updatePath recomputes every ancestor of the leaf at index.
func (m *mutation) updatePath(index uint64) error {
	return m.updateRange(index, index)
}

// updateRange recomputes, level by level, every ancestor of the leaves in
// [first, last] in the tree over m.length leaves. A node's hash depends only
// on the leaves below it, so no other node can change.
func (m *mutation) updateRange(first, last uint64) error {
	height := merkle.TreeHeight(m.length)

	for h := uint32(2); h <= height; h++ {
		shift := h - 1
		for index := first >> shift; index <= last>>shift; index++ {
			parent := merkle.ProofListKey{Index: index, Height: h}
			left, right, hasRight := parent.Children(m.length)

			leftHash, err := m.nodeHash(left)
			if err != nil {
				return err
			}

			var parentHash merkle.Hash
			if hasRight {
				rightHash, err := m.nodeHash(right)
				if err != nil {
					return err
				}
				parentHash = m.hasher.HashNode(leftHash, &rightHash)
			} else {
				parentHash = m.hasher.HashNode(leftHash, nil)
			}

			m.batch.PutHash(parent, parentHash)
		}
	}
	return nil
}
