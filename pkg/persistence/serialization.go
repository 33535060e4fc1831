package persistence

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
)

// MarshalListMeta serializes ListMeta to JSON bytes.
func MarshalListMeta(meta *ListMeta) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("cannot marshal nil ListMeta")
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ListMeta to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalListMeta deserializes ListMeta from JSON bytes.
func UnmarshalListMeta(data []byte) (*ListMeta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var meta ListMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ListMeta: %w", err)
	}

	return &meta, nil
}

// EncodeIndex returns the big endian form of an element index. Big endian
// keeps byte-wise key order equal to numeric order.
func EncodeIndex(index uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, index)
}

// EncodeNodeKey returns the big endian form of a node key, height first.
func EncodeNodeKey(key merkle.ProofListKey) []byte {
	b := binary.BigEndian.AppendUint32(nil, key.Height)
	return binary.BigEndian.AppendUint64(b, key.Index)
}

// DecodeHash converts stored bytes back into a node hash.
func DecodeHash(data []byte) (*merkle.Hash, error) {
	h, err := merkle.HashFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("corrupted node hash: %w", err)
	}
	return &h, nil
}
