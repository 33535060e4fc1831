package merkle

import "fmt"

// NodeReader gives the proof builder read access to an authenticated list.
// Implementations must present a consistent snapshot for the duration of a
// BuildProof call.
type NodeReader interface {
	// Length returns the number of elements in the list.
	Length() uint64

	// Value returns the serialized element at index.
	Value(index uint64) ([]byte, error)

	// NodeHash returns the hash stored at key.
	NodeHash(key ProofListKey) (Hash, error)
}

// Tree is a fully materialized Merkle tree over an in-memory list.
// levels[0] holds the leaf hashes (height 1), levels[len-1] the root.
type Tree struct {
	hasher Hasher
	values [][]byte
	levels [][]Hash
}

var _ NodeReader = (*Tree)(nil)

// NewTree hashes values and builds every level of the tree bottom-up.
// The last node of an odd-width level is carried up unchanged.
func NewTree(hasher Hasher, values [][]byte) *Tree {
	t := &Tree{
		hasher: hasher,
		values: make([][]byte, len(values)),
	}

	leaves := make([]Hash, len(values))
	for i, v := range values {
		t.values[i] = append([]byte(nil), v...)
		leaves[i] = hasher.HashLeaf(v)
	}
	t.levels = buildLevels(hasher, leaves)
	return t
}

func buildLevels(hasher Hasher, leaves []Hash) [][]Hash {
	levels := [][]Hash{leaves}

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([]Hash, 0, (len(currentLevel)+1)/2)
		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 < len(currentLevel) {
				right := currentLevel[i+1]
				nextLevel = append(nextLevel, hasher.HashNode(currentLevel[i], &right))
			} else {
				nextLevel = append(nextLevel, hasher.HashNode(currentLevel[i], nil))
			}
		}
		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}
	return levels
}

// MerkleRoot folds leaf hashes into the root of their tree. The root of an
// empty list is the zero hash.
func MerkleRoot(hasher Hasher, leaves []Hash) Hash {
	if len(leaves) == 0 {
		return Hash{}
	}
	levels := buildLevels(hasher, leaves)
	return levels[len(levels)-1][0]
}

// ListHash returns the list hash of values: the Merkle root bound to the
// number of elements.
func ListHash(hasher Hasher, values [][]byte) Hash {
	return NewTree(hasher, values).ListHash()
}

// Length returns the number of elements.
func (t *Tree) Length() uint64 {
	return uint64(len(t.values))
}

// Height returns the number of levels of the tree.
func (t *Tree) Height() uint32 {
	return TreeHeight(t.Length())
}

// Leaves returns the leaf hashes in index order.
func (t *Tree) Leaves() []Hash {
	return append([]Hash(nil), t.levels[0]...)
}

// Value returns the element at index.
func (t *Tree) Value(index uint64) ([]byte, error) {
	if index >= t.Length() {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, t.Length())
	}
	return append([]byte(nil), t.values[index]...), nil
}

// NodeHash returns the hash stored at key.
func (t *Tree) NodeHash(key ProofListKey) (Hash, error) {
	if !key.Contains(t.Length()) {
		return Hash{}, fmt.Errorf("node %s is not part of a tree of length %d", key, t.Length())
	}
	return t.levels[key.Height-1][key.Index], nil
}

// MerkleRoot returns the root hash of the tree.
func (t *Tree) MerkleRoot() Hash {
	if t.Length() == 0 {
		return Hash{}
	}
	return t.levels[len(t.levels)-1][0]
}

// ListHash returns the hash binding the root to the list length.
func (t *Tree) ListHash() Hash {
	return t.hasher.HashList(t.Length(), t.MerkleRoot())
}

// GenerateProof builds a proof for the elements at indices.
func (t *Tree) GenerateProof(indices ...uint64) (*ListProof, error) {
	return BuildProof(t, indices)
}

// GenerateRangeProof builds a proof for the elements in [from, to).
func (t *Tree) GenerateRangeProof(from, to uint64) (*ListProof, error) {
	return BuildRangeProof(t, from, to)
}
