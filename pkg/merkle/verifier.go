package merkle

// node is a hash known to the verifier at the height being folded.
type node struct {
	index uint64
	hash  Hash
}

// Verify checks proof against the expected list hash and returns the proven
// elements keyed by index. Verification is a single bottom-up pass with no
// partial success: any error means none of the entries can be trusted.
func Verify(hasher Hasher, proof *ListProof, expectedListHash Hash) (map[uint64][]byte, error) {
	listHash, _, err := ComputeListHash(hasher, proof)
	if err != nil {
		return nil, err
	}
	if listHash != expectedListHash {
		return nil, newProofError(ErrRootMismatch, "computed %s, expected %s", listHash.Hex(), expectedListHash.Hex())
	}

	entries := make(map[uint64][]byte, len(proof.Entries))
	for _, e := range proof.Entries {
		entries[e.Index] = append([]byte(nil), e.Value...)
	}
	return entries, nil
}

// ComputeListHash rebuilds the list hash and the Merkle root claimed by proof
// without comparing them to a trusted value.
func ComputeListHash(hasher Hasher, proof *ListProof) (listHash Hash, merkleRoot Hash, err error) {
	if proof == nil {
		return Hash{}, Hash{}, newProofError(ErrMissingNode, "nil proof")
	}

	length := proof.Length
	if err := checkEntries(proof); err != nil {
		return Hash{}, Hash{}, err
	}

	supplied, err := indexHashes(proof)
	if err != nil {
		return Hash{}, Hash{}, err
	}

	switch {
	case length == 0:
		merkleRoot = Hash{}
	case len(proof.Entries) == 0:
		merkleRoot, err = supplied.take(RootKey(length))
	default:
		merkleRoot, err = fold(hasher, proof, supplied)
	}
	if err != nil {
		return Hash{}, Hash{}, err
	}

	if err := supplied.checkConsumed(proof); err != nil {
		return Hash{}, Hash{}, err
	}

	return hasher.HashList(length, merkleRoot), merkleRoot, nil
}

func checkEntries(proof *ListProof) error {
	for i, e := range proof.Entries {
		if e.Index >= proof.Length {
			return newProofError(ErrIndexOutOfRange, "entry index %d, list length %d", e.Index, proof.Length)
		}
		if i > 0 && e.Index <= proof.Entries[i-1].Index {
			return newProofError(ErrUnexpectedNode, "entry %d follows entry %d: entries must be strictly ascending", e.Index, proof.Entries[i-1].Index)
		}
	}
	return nil
}

// suppliedHashes tracks which companion hashes the fold has used.
type suppliedHashes struct {
	hashes   map[ProofListKey]Hash
	consumed map[ProofListKey]bool
}

func indexHashes(proof *ListProof) (*suppliedHashes, error) {
	s := &suppliedHashes{
		hashes:   make(map[ProofListKey]Hash, len(proof.Proof)),
		consumed: make(map[ProofListKey]bool, len(proof.Proof)),
	}

	for i, entry := range proof.Proof {
		key := entry.Key
		if !key.Contains(proof.Length) {
			return nil, newNodeError(ErrUnexpectedNode, key, "node is outside a tree of length %d", proof.Length)
		}
		if i > 0 && !proof.Proof[i-1].Key.less(key) {
			if proof.Proof[i-1].Key == key {
				return nil, newNodeError(ErrUnexpectedNode, key, "duplicate hash")
			}
			return nil, newNodeError(ErrUnexpectedNode, key, "hashes must be ordered by height, then index")
		}
		s.hashes[key] = entry.Hash
	}
	return s, nil
}

func (s *suppliedHashes) take(key ProofListKey) (Hash, error) {
	hash, ok := s.hashes[key]
	if !ok {
		return Hash{}, newNodeError(ErrMissingNode, key, "required hash is absent from the proof")
	}
	s.consumed[key] = true
	return hash, nil
}

func (s *suppliedHashes) checkConsumed(proof *ListProof) error {
	for _, entry := range proof.Proof {
		if !s.consumed[entry.Key] {
			return newNodeError(ErrUnexpectedNode, entry.Key, "hash is not needed to rebuild the root")
		}
	}
	return nil
}

// fold hashes the entries and climbs level by level, pairing each known node
// with its neighbour in the known set or with a supplied sibling hash.
func fold(hasher Hasher, proof *ListProof, supplied *suppliedHashes) (Hash, error) {
	length := proof.Length

	current := make([]node, len(proof.Entries))
	for i, e := range proof.Entries {
		current[i] = node{index: e.Index, hash: hasher.HashLeaf(e.Value)}
	}

	height := TreeHeight(length)
	for h := uint32(1); h < height; h++ {
		width := LevelWidth(length, h)
		next := make([]node, 0, (len(current)+1)/2)

		for i := 0; i < len(current); i++ {
			n := current[i]
			var parent Hash

			if n.index%2 == 0 {
				switch {
				case i+1 < len(current) && current[i+1].index == n.index+1:
					right := current[i+1].hash
					parent = hasher.HashNode(n.hash, &right)
					i++
				case n.index+1 >= width:
					parent = hasher.HashNode(n.hash, nil)
				default:
					right, err := supplied.take(ProofListKey{Index: n.index + 1, Height: h})
					if err != nil {
						return Hash{}, err
					}
					parent = hasher.HashNode(n.hash, &right)
				}
			} else {
				left, err := supplied.take(ProofListKey{Index: n.index - 1, Height: h})
				if err != nil {
					return Hash{}, err
				}
				parent = hasher.HashNode(left, &n.hash)
			}

			next = append(next, node{index: n.index / 2, hash: parent})
		}
		current = next
	}

	return current[0].hash, nil
}
