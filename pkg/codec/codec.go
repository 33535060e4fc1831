// Package codec converts typed list elements to and from the bytes that are
// stored and hashed.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Codec serializes elements of type V. Encode must be deterministic: equal
// values always produce equal bytes, since the bytes are what gets hashed.
type Codec[V any] interface {
	Encode(value V) ([]byte, error)
	Decode(data []byte) (V, error)
}

type bytesCodec struct{}

// Bytes stores raw byte slices unchanged.
func Bytes() Codec[[]byte] {
	return bytesCodec{}
}

func (bytesCodec) Encode(value []byte) ([]byte, error) {
	return append([]byte{}, value...), nil
}

func (bytesCodec) Decode(data []byte) ([]byte, error) {
	return append([]byte{}, data...), nil
}

type stringCodec struct{}

// String stores strings as their UTF-8 bytes.
func String() Codec[string] {
	return stringCodec{}
}

func (stringCodec) Encode(value string) ([]byte, error) {
	return []byte(value), nil
}

func (stringCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}

type uint64Codec struct{}

// Uint64 stores integers as 8 little endian bytes.
func Uint64() Codec[uint64] {
	return uint64Codec{}
}

func (uint64Codec) Encode(value uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, value), nil
}

func (uint64Codec) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid uint64 encoding: expected 8 bytes, got %d", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

type hashCodec struct{}

// Hash stores digests as their 32 raw bytes, the element type of a
// transaction history list.
func Hash() Codec[merkle.Hash] {
	return hashCodec{}
}

func (hashCodec) Encode(value merkle.Hash) ([]byte, error) {
	return value.Bytes(), nil
}

func (hashCodec) Decode(data []byte) (merkle.Hash, error) {
	return merkle.HashFromBytes(data)
}

type jsonCodec[T any] struct{}

// JSON stores structured values using encoding/json. Field order follows the
// struct definition, so encoding is deterministic for struct types; maps are
// encoded with sorted keys.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

func (jsonCodec[T]) Encode(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T to JSON: %w", value, err)
	}
	return data, nil
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if len(data) == 0 {
		return value, fmt.Errorf("cannot unmarshal empty data")
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal JSON to %T: %w", value, err)
	}
	return value, nil
}

type addressCodec struct{}

// Address stores Ethereum addresses as their 20 raw bytes.
func Address() Codec[common.Address] {
	return addressCodec{}
}

func (addressCodec) Encode(value common.Address) ([]byte, error) {
	return value.Bytes(), nil
}

func (addressCodec) Decode(data []byte) (common.Address, error) {
	if len(data) != common.AddressLength {
		return common.Address{}, fmt.Errorf("invalid address encoding: expected %d bytes, got %d", common.AddressLength, len(data))
	}
	return common.BytesToAddress(data), nil
}

// abiStringArguments describes a single ABI string parameter
var abiStringArguments = func() abi.Arguments {
	stringType, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: stringType}}
}()

type abiStringCodec struct{}

// ABIString stores strings in the Solidity ABI encoding, so that leaves can
// be recomputed on chain with abi.encode.
func ABIString() Codec[string] {
	return abiStringCodec{}
}

func (abiStringCodec) Encode(value string) ([]byte, error) {
	encoded, err := abiStringArguments.Pack(value)
	if err != nil {
		return nil, fmt.Errorf("failed to ABI encode string: %w", err)
	}
	return encoded, nil
}

func (abiStringCodec) Decode(data []byte) (string, error) {
	out, err := abiStringArguments.Unpack(data)
	if err != nil {
		return "", fmt.Errorf("failed to ABI decode string: %w", err)
	}
	if len(out) != 1 {
		return "", fmt.Errorf("expected 1 ABI value, got %d", len(out))
	}
	value, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("expected ABI string, got %T", out[0])
	}
	return value, nil
}
