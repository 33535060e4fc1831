package merkle

import (
	"fmt"
	"sort"
)

// BuildProof creates a proof for the elements at indices of the list behind
// reader. Indices are deduplicated and sorted. The proof carries exactly the
// sibling hashes on the boundary of the subtree the verifier can rebuild
// from the entries, ordered bottom level first and left to right.
//
// An empty index set yields a proof holding only the root node, which
// authenticates the list length without revealing any element.
func BuildProof(reader NodeReader, indices []uint64) (*ListProof, error) {
	length := reader.Length()
	sorted := normalizeIndices(indices)

	for _, index := range sorted {
		if index >= length {
			return nil, &ProofError{
				Kind:   ErrIndexOutOfRange,
				Detail: fmt.Sprintf("index %d, list length %d", index, length),
			}
		}
	}

	proof := &ListProof{
		Proof:   []HashedEntry{},
		Entries: make([]ListProofEntry, 0, len(sorted)),
		Length:  length,
	}
	if length == 0 {
		return proof, nil
	}

	if len(sorted) == 0 {
		root := RootKey(length)
		hash, err := reader.NodeHash(root)
		if err != nil {
			return nil, fmt.Errorf("failed to read root hash: %w", err)
		}
		proof.Proof = append(proof.Proof, HashedEntry{Key: root, Hash: hash})
		return proof, nil
	}

	for _, index := range sorted {
		value, err := reader.Value(index)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %d: %w", index, err)
		}
		proof.Entries = append(proof.Entries, ListProofEntry{Index: index, Value: value})
	}

	for _, key := range proofKeys(length, sorted) {
		hash, err := reader.NodeHash(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read node %s: %w", key, err)
		}
		proof.Proof = append(proof.Proof, HashedEntry{Key: key, Hash: hash})
	}

	return proof, nil
}

// BuildRangeProof creates a proof for the elements in [from, to). The range
// is clipped to the list length; a range lying entirely past the end yields
// the root-only proof, proving that no element exists there.
func BuildRangeProof(reader NodeReader, from, to uint64) (*ListProof, error) {
	if from > to {
		return nil, &ProofError{Kind: ErrInvalidRange, Detail: fmt.Sprintf("from %d > to %d", from, to)}
	}

	length := reader.Length()
	if to > length {
		to = length
	}

	var indices []uint64
	for i := from; i < to; i++ {
		indices = append(indices, i)
	}
	return BuildProof(reader, indices)
}

// proofKeys walks the tree bottom-up from the sorted leaf indices and
// returns the keys of the siblings that cannot be derived from them.
func proofKeys(length uint64, indices []uint64) []ProofListKey {
	var keys []ProofListKey

	height := TreeHeight(length)
	current := indices
	for h := uint32(1); h < height; h++ {
		width := LevelWidth(length, h)
		next := make([]uint64, 0, len(current))

		for i := 0; i < len(current); i++ {
			index := current[i]
			if index%2 == 0 {
				switch {
				case i+1 < len(current) && current[i+1] == index+1:
					// both children known
					i++
				case index+1 < width:
					keys = append(keys, ProofListKey{Index: index + 1, Height: h})
				}
			} else {
				keys = append(keys, ProofListKey{Index: index - 1, Height: h})
			}
			next = append(next, index/2)
		}
		current = next
	}

	return keys
}

func normalizeIndices(indices []uint64) []uint64 {
	sorted := append([]uint64(nil), indices...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	out := make([]uint64, 0, len(sorted))
	for _, index := range sorted {
		if len(out) > 0 && out[len(out)-1] == index {
			continue
		}
		out = append(out, index)
	}
	return out
}
