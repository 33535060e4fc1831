package codec

import (
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func TestBytesCodecCopies(t *testing.T) {
	c := Bytes()
	in := []byte{1, 2, 3}

	encoded, err := c.Encode(in)
	require.NoError(t, err)
	in[0] = 9
	require.Equal(t, []byte{1, 2, 3}, encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	encoded[1] = 9
	require.Equal(t, []byte{1, 2, 3}, decoded)

	empty, err := c.Decode(nil)
	require.NoError(t, err)
	require.NotNil(t, empty)
}

func TestUint64Codec(t *testing.T) {
	c := Uint64()

	encoded, err := c.Encode(0x0102)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102), decoded)

	_, err = c.Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestStringCodec(t *testing.T) {
	c := String()
	encoded, err := c.Encode("héllo")
	require.NoError(t, err)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "héllo", decoded)
}

func TestHashCodec(t *testing.T) {
	c := Hash()
	h := merkle.NewSHA256Hasher().HashLeaf([]byte("tx"))

	encoded, err := c.Encode(h)
	require.NoError(t, err)
	require.Len(t, encoded, merkle.HashSize)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, h, decoded)

	_, err = c.Decode(encoded[:31])
	require.Error(t, err)
}

func TestJSONCodec(t *testing.T) {
	c := JSON[transfer]()
	in := transfer{From: "alice", To: "bob", Amount: 42}

	encoded, err := c.Encode(in)
	require.NoError(t, err)
	require.Equal(t, `{"from":"alice","to":"bob","amount":42}`, string(encoded))

	again, err := c.Encode(in)
	require.NoError(t, err)
	require.Equal(t, encoded, again)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, in, decoded)

	_, err = c.Decode(nil)
	require.Error(t, err)
	_, err = c.Decode([]byte("{"))
	require.Error(t, err)
}

func TestAddressCodec(t *testing.T) {
	c := Address()
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")

	encoded, err := c.Encode(addr)
	require.NoError(t, err)
	require.Len(t, encoded, common.AddressLength)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	_, err = c.Decode(encoded[:19])
	require.Error(t, err)
}

func TestABIStringCodec(t *testing.T) {
	c := ABIString()

	encoded, err := c.Encode("hello")
	require.NoError(t, err)
	// offset word, length word, one padded data word
	require.Len(t, encoded, 96)
	require.Equal(t, byte(0x20), encoded[31])
	require.Equal(t, byte(5), encoded[63])
	require.Equal(t, []byte("hello"), encoded[64:69])

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "hello", decoded)

	_, err = c.Decode(encoded[:40])
	require.Error(t, err)
}
