package persistence

import (
	"errors"
	"time"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("persistence layer is closed")

// ListMeta is the per-list state that must persist across restarts.
type ListMeta struct {
	// Length is the number of elements in the list.
	Length uint64 `json:"length"`

	// Hasher is the name of the digest the node hashes were computed with.
	// A list can only be reopened with the same hasher.
	Hasher string `json:"hasher"`

	// UpdatedAt is the Unix timestamp of the last write.
	UpdatedAt int64 `json:"updatedAt"`
}

// Batch collects the changes of one list mutation so that they can be
// applied atomically.
type Batch struct {
	Meta          ListMeta
	Values        map[uint64][]byte
	Hashes        map[merkle.ProofListKey]merkle.Hash
	DeletedValues []uint64
	DeletedHashes []merkle.ProofListKey
}

// NewBatch returns an empty batch that will leave the list with meta.
func NewBatch(meta ListMeta) *Batch {
	return &Batch{
		Meta:   meta,
		Values: make(map[uint64][]byte),
		Hashes: make(map[merkle.ProofListKey]merkle.Hash),
	}
}

// PutValue stores the element at index.
func (b *Batch) PutValue(index uint64, value []byte) {
	b.Values[index] = append([]byte{}, value...)
}

// PutHash stores the node hash at key.
func (b *Batch) PutHash(key merkle.ProofListKey, hash merkle.Hash) {
	b.Hashes[key] = hash
}

// DeleteValue removes the element at index.
func (b *Batch) DeleteValue(index uint64) {
	b.DeletedValues = append(b.DeletedValues, index)
}

// DeleteHash removes the node hash at key.
func (b *Batch) DeleteHash(key merkle.ProofListKey) {
	b.DeletedHashes = append(b.DeletedHashes, key)
}

// Touch stamps the batch metadata with the current time.
func (b *Batch) Touch() {
	b.Meta.UpdatedAt = time.Now().Unix()
}
