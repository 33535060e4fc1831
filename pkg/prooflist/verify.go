package prooflist

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
)

// VerifyAs verifies proof against a trusted list hash and decodes the proven
// elements.
func VerifyAs[V any](hasher merkle.Hasher, c codec.Codec[V], proof *merkle.ListProof, expectedListHash merkle.Hash) (map[uint64]V, error) {
	entries, err := merkle.Verify(hasher, proof, expectedListHash)
	if err != nil {
		return nil, err
	}

	values := make(map[uint64]V, len(entries))
	for index, data := range entries {
		v, err := c.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode proven element %d: %w", index, err)
		}
		values[index] = v
	}
	return values, nil
}
