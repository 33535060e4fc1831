package merkle

import "math/bits"

// TreeHeight returns the number of levels needed to reduce length leaves to
// a single root: ceil(log2(max(length, 1))) + 1.
func TreeHeight(length uint64) uint32 {
	if length <= 1 {
		return 1
	}
	return uint32(bits.Len64(length-1)) + 1
}

// LevelWidth returns how many nodes exist at the given height of the tree
// over length leaves.
func LevelWidth(length uint64, height uint32) uint64 {
	if length == 0 || height == 0 {
		return 0
	}
	// ceil(length / 2^(height-1)) without overflowing near 2^64
	return ((length - 1) >> (height - 1)) + 1
}

// RootKey returns the key of the root node of the tree over length leaves.
func RootKey(length uint64) ProofListKey {
	return ProofListKey{Index: 0, Height: TreeHeight(length)}
}

// LeafKey returns the key holding the hash of the element at index.
func LeafKey(index uint64) ProofListKey {
	return ProofListKey{Index: index, Height: 1}
}

// Parent returns the key of the node one level up.
func (k ProofListKey) Parent() ProofListKey {
	return ProofListKey{Index: k.Index / 2, Height: k.Height + 1}
}

// IsLeft reports whether the node is the left child of its parent.
func (k ProofListKey) IsLeft() bool {
	return k.Index%2 == 0
}

// Sibling returns the pairing partner of k in the tree over length leaves.
// The last node of an odd-width level has no partner and ok is false.
func (k ProofListKey) Sibling(length uint64) (ProofListKey, bool) {
	sibling := ProofListKey{Index: k.Index ^ 1, Height: k.Height}
	if sibling.Index >= LevelWidth(length, k.Height) {
		return ProofListKey{}, false
	}
	return sibling, true
}

// Children returns the left child and, when it exists, the right child of k
// in the tree over length leaves. Leaf keys have no children.
func (k ProofListKey) Children(length uint64) (left ProofListKey, right ProofListKey, hasRight bool) {
	left = ProofListKey{Index: k.Index * 2, Height: k.Height - 1}
	right = ProofListKey{Index: k.Index*2 + 1, Height: k.Height - 1}
	return left, right, right.Index < LevelWidth(length, right.Height)
}

// Contains reports whether k is a node of the tree over length leaves.
func (k ProofListKey) Contains(length uint64) bool {
	return k.Height >= 1 && k.Height <= TreeHeight(length) && k.Index < LevelWidth(length, k.Height)
}

// less orders keys bottom level first, left to right within a level.
func (k ProofListKey) less(other ProofListKey) bool {
	if k.Height != other.Height {
		return k.Height < other.Height
	}
	return k.Index < other.Index
}
