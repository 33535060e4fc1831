package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashSize is the digest length of every supported hasher.
const HashSize = 32

// Hash is a fixed-size digest of a leaf, a branch or a whole list.
type Hash [HashSize]byte

// Bytes returns a copy of the digest as a slice.
func (h Hash) Bytes() []byte {
	return append([]byte(nil), h[:]...)
}

// Hex returns the 0x-prefixed hex encoding of the digest.
func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether every byte of the digest is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText encodes the digest as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex digest.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFromBytes converts a 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length: expected %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HexToHash parses a 0x-prefixed hex string into a Hash.
func HexToHash(s string) (Hash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return HashFromBytes(raw)
}

// ProofListKey addresses one node of the implicit Merkle tree over a list.
// Height 1 holds the hash of a single element; height h > 1 holds the hash
// of a pair of nodes at height h-1.
type ProofListKey struct {
	Index  uint64 `json:"index"`
	Height uint32 `json:"height"`
}

func (k ProofListKey) String() string {
	return fmt.Sprintf("(index=%d, height=%d)", k.Index, k.Height)
}

// HashedEntry is a node hash shipped in a proof in place of its subtree.
type HashedEntry struct {
	Key  ProofListKey `json:"key"`
	Hash Hash         `json:"hash"`
}

// ListProofEntry is a proven list element and its position in the list.
type ListProofEntry struct {
	Index uint64        `json:"index"`
	Value hexutil.Bytes `json:"value"`
}

// ListProof proves that a set of elements sits at the given indices of a
// list with the given length.
//
// Proof holds the companion hashes ordered bottom level first, left to
// right within a level. Entries are ordered by index.
type ListProof struct {
	Proof   []HashedEntry    `json:"proof"`
	Entries []ListProofEntry `json:"entries"`
	Length  uint64           `json:"length"`
}

// Indices returns the indices of the proven entries.
func (p *ListProof) Indices() []uint64 {
	indices := make([]uint64, len(p.Entries))
	for i, e := range p.Entries {
		indices[i] = e.Index
	}
	return indices
}

// Clone returns a deep copy of the proof.
func (p *ListProof) Clone() *ListProof {
	if p == nil {
		return nil
	}
	c := &ListProof{
		Proof:   append([]HashedEntry(nil), p.Proof...),
		Entries: make([]ListProofEntry, len(p.Entries)),
		Length:  p.Length,
	}
	for i, e := range p.Entries {
		c.Entries[i] = ListProofEntry{Index: e.Index, Value: append(hexutil.Bytes(nil), e.Value...)}
	}
	return c
}
