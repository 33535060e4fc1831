package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzABIStringRoundTrip(f *testing.F) {
	f.Add("")
	f.Add("hello")
	f.Add("こんにちは") // unicode

	c := ABIString()
	f.Fuzz(func(t *testing.T, s string) {
		// Keep memory bounded for fuzzing.
		if len(s) > 4096 {
			s = s[:4096]
		}

		encoded, err := c.Encode(s)
		require.NoError(t, err)
		require.Zero(t, len(encoded)%32)

		decoded, err := c.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, s, decoded)
	})
}

func FuzzUint64Decode(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	c := Uint64()
	f.Fuzz(func(t *testing.T, data []byte) {
		v, err := c.Decode(data)
		if len(data) != 8 {
			require.Error(t, err)
			return
		}
		require.NoError(t, err)

		encoded, err := c.Encode(v)
		require.NoError(t, err)
		require.Equal(t, data, encoded)
	})
}
