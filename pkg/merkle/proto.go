package merkle

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers. They are part of the interoperable format and must
// never change.
const (
	fieldListProofProof   protowire.Number = 1
	fieldListProofEntries protowire.Number = 2
	fieldListProofLength  protowire.Number = 3

	fieldHashedEntryKey  protowire.Number = 1
	fieldHashedEntryHash protowire.Number = 2

	fieldEntryIndex protowire.Number = 1
	fieldEntryValue protowire.Number = 2

	fieldKeyIndex  protowire.Number = 1
	fieldKeyHeight protowire.Number = 2

	fieldHashData protowire.Number = 1
)

// ContentTypeProtobuf is the media type of the wire encoding.
const ContentTypeProtobuf = "application/x-protobuf"

// MarshalBinary encodes the proof in the protobuf wire format. Fields with
// default values are omitted, as proto3 does.
func (p *ListProof) MarshalBinary() ([]byte, error) {
	var b []byte
	for _, entry := range p.Proof {
		b = protowire.AppendTag(b, fieldListProofProof, protowire.BytesType)
		b = protowire.AppendBytes(b, appendHashedEntry(nil, entry))
	}
	for _, entry := range p.Entries {
		b = protowire.AppendTag(b, fieldListProofEntries, protowire.BytesType)
		b = protowire.AppendBytes(b, appendListProofEntry(nil, entry))
	}
	b = appendVarintField(b, fieldListProofLength, p.Length)
	return b, nil
}

// UnmarshalBinary decodes a proof from the protobuf wire format. Unknown
// fields are skipped.
func (p *ListProof) UnmarshalBinary(data []byte) error {
	decoded := ListProof{Proof: []HashedEntry{}, Entries: []ListProofEntry{}}

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldListProofProof:
			raw, n, err := consumeBytesField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ListProof.proof: %w", err)
			}
			entry, err := decodeHashedEntry(raw)
			if err != nil {
				return 0, fmt.Errorf("ListProof.proof: %w", err)
			}
			decoded.Proof = append(decoded.Proof, entry)
			return n, nil
		case fieldListProofEntries:
			raw, n, err := consumeBytesField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ListProof.entries: %w", err)
			}
			entry, err := decodeListProofEntry(raw)
			if err != nil {
				return 0, fmt.Errorf("ListProof.entries: %w", err)
			}
			decoded.Entries = append(decoded.Entries, entry)
			return n, nil
		case fieldListProofLength:
			v, n, err := consumeVarintField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ListProof.length: %w", err)
			}
			decoded.Length = v
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return err
	}

	*p = decoded
	return nil
}

// MarshalBinary encodes the key in the protobuf wire format.
func (k ProofListKey) MarshalBinary() ([]byte, error) {
	return appendProofListKey(nil, k), nil
}

// UnmarshalBinary decodes a key from the protobuf wire format.
func (k *ProofListKey) UnmarshalBinary(data []byte) error {
	decoded, err := decodeProofListKey(data)
	if err != nil {
		return err
	}
	*k = decoded
	return nil
}

func appendHashedEntry(b []byte, entry HashedEntry) []byte {
	b = protowire.AppendTag(b, fieldHashedEntryKey, protowire.BytesType)
	b = protowire.AppendBytes(b, appendProofListKey(nil, entry.Key))
	b = protowire.AppendTag(b, fieldHashedEntryHash, protowire.BytesType)
	b = protowire.AppendBytes(b, appendHashMessage(nil, entry.Hash))
	return b
}

func appendListProofEntry(b []byte, entry ListProofEntry) []byte {
	b = appendVarintField(b, fieldEntryIndex, entry.Index)
	if len(entry.Value) > 0 {
		b = protowire.AppendTag(b, fieldEntryValue, protowire.BytesType)
		b = protowire.AppendBytes(b, entry.Value)
	}
	return b
}

func appendProofListKey(b []byte, key ProofListKey) []byte {
	b = appendVarintField(b, fieldKeyIndex, key.Index)
	b = appendVarintField(b, fieldKeyHeight, uint64(key.Height))
	return b
}

func appendHashMessage(b []byte, h Hash) []byte {
	b = protowire.AppendTag(b, fieldHashData, protowire.BytesType)
	return protowire.AppendBytes(b, h[:])
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func decodeHashedEntry(data []byte) (HashedEntry, error) {
	var entry HashedEntry
	var hasHash bool

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldHashedEntryKey:
			raw, n, err := consumeBytesField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("HashedEntry.key: %w", err)
			}
			key, err := decodeProofListKey(raw)
			if err != nil {
				return 0, fmt.Errorf("HashedEntry.key: %w", err)
			}
			entry.Key = key
			return n, nil
		case fieldHashedEntryHash:
			raw, n, err := consumeBytesField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("HashedEntry.hash: %w", err)
			}
			h, err := decodeHashMessage(raw)
			if err != nil {
				return 0, fmt.Errorf("HashedEntry.hash: %w", err)
			}
			entry.Hash = h
			hasHash = true
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return HashedEntry{}, err
	}
	if !hasHash {
		return HashedEntry{}, fmt.Errorf("HashedEntry.hash: missing")
	}
	return entry, nil
}

func decodeListProofEntry(data []byte) (ListProofEntry, error) {
	entry := ListProofEntry{Value: []byte{}}

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldEntryIndex:
			v, n, err := consumeVarintField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ListProofEntry.index: %w", err)
			}
			entry.Index = v
			return n, nil
		case fieldEntryValue:
			raw, n, err := consumeBytesField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ListProofEntry.value: %w", err)
			}
			entry.Value = append([]byte{}, raw...)
			return n, nil
		}
		return -1, nil
	})
	return entry, err
}

func decodeProofListKey(data []byte) (ProofListKey, error) {
	var key ProofListKey

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldKeyIndex:
			v, n, err := consumeVarintField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ProofListKey.index: %w", err)
			}
			key.Index = v
			return n, nil
		case fieldKeyHeight:
			v, n, err := consumeVarintField(typ, b)
			if err != nil {
				return 0, fmt.Errorf("ProofListKey.height: %w", err)
			}
			// uint32 fields keep the low 32 bits, as protobuf decoders do
			key.Height = uint32(v)
			return n, nil
		}
		return -1, nil
	})
	return key, err
}

func decodeHashMessage(data []byte) (Hash, error) {
	var h Hash
	var found bool

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldHashData {
			return -1, nil
		}
		raw, n, err := consumeBytesField(typ, b)
		if err != nil {
			return 0, fmt.Errorf("Hash.data: %w", err)
		}
		h, err = HashFromBytes(raw)
		if err != nil {
			return 0, fmt.Errorf("Hash.data: %w", err)
		}
		found = true
		return n, nil
	})
	if err != nil {
		return Hash{}, err
	}
	if !found {
		return Hash{}, fmt.Errorf("Hash.data: missing")
	}
	return h, nil
}

// fieldFunc consumes the value of one field and returns the number of bytes
// read, or -1 to have the field skipped as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(data []byte, fn fieldFunc) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		n, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		data = data[n:]
	}
	return nil
}

func consumeBytesField(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeVarintField(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}
