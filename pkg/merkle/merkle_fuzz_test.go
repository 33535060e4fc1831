package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// FuzzUnmarshalBinary checks that arbitrary input never panics the decoder
// and that whatever decodes re-encodes to something that decodes the same.
func FuzzUnmarshalBinary(f *testing.F) {
	tree := NewTree(NewSHA256Hasher(), createTestValues(6))
	proof, err := tree.GenerateProof(1, 4)
	require.NoError(f, err)
	seed, err := proof.MarshalBinary()
	require.NoError(f, err)

	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{0x0a, 0x00})
	f.Add([]byte{0x18, 0x02})

	f.Fuzz(func(t *testing.T, data []byte) {
		var decoded ListProof
		if err := decoded.UnmarshalBinary(data); err != nil {
			return
		}

		encoded, err := decoded.MarshalBinary()
		require.NoError(t, err)

		var again ListProof
		require.NoError(t, again.UnmarshalBinary(encoded))
		require.Equal(t, decoded, again)
	})
}

// FuzzVerifyNeverAcceptsForeignHash checks that proofs are rejected against a
// list hash they weren't built for.
func FuzzVerifyNeverAcceptsForeignHash(f *testing.F) {
	f.Add(uint8(5), uint8(2), []byte{0x01})
	f.Add(uint8(1), uint8(0), []byte{})
	f.Add(uint8(16), uint8(15), []byte{0xff, 0x00})

	h := NewSHA256Hasher()
	f.Fuzz(func(t *testing.T, n uint8, index uint8, salt []byte) {
		if n == 0 {
			return
		}
		values := createTestValues(int(n))
		tree := NewTree(h, values)
		proof, err := tree.GenerateProof(uint64(index) % uint64(n))
		require.NoError(t, err)

		_, err = Verify(h, proof, tree.ListHash())
		require.NoError(t, err)

		foreign := h.HashLeaf(append([]byte("foreign"), salt...))
		_, err = Verify(h, proof, foreign)
		require.ErrorIs(t, err, ErrRootMismatch)
	})
}
