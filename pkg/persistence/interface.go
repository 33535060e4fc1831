package persistence

import "github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"

// IListPersistence stores named authenticated lists: their metadata, their
// serialized elements and the node hashes of their Merkle trees.
// All implementations must be thread-safe; callers serialize writes to a
// single list but may read and write different lists concurrently.
//
// The interface supports:
// - List metadata (length, hasher)
// - Element storage by index
// - Node hash storage by ProofListKey
// - Atomic multi-key updates through ApplyBatch
// - Lifecycle management (close, health check)
type IListPersistence interface {
	// List Metadata

	// LoadMeta returns the metadata of a list.
	// Returns nil if the list doesn't exist, error only on storage failure.
	LoadMeta(list string) (*ListMeta, error)

	// ListNames returns the names of all stored lists sorted ascending.
	// Returns empty slice if no lists exist.
	ListNames() ([]string, error)

	// Elements

	// LoadValue returns the serialized element at index.
	// Returns nil if no element is stored there, error only on storage failure.
	LoadValue(list string, index uint64) ([]byte, error)

	// LoadValues returns the elements in [from, to).
	// Returns an error if any of them is missing.
	LoadValues(list string, from, to uint64) ([][]byte, error)

	// Merkle Nodes

	// LoadNodeHash returns the hash stored at key.
	// Returns nil if no hash is stored there, error only on storage failure.
	LoadNodeHash(list string, key merkle.ProofListKey) (*merkle.Hash, error)

	// Writes

	// ApplyBatch atomically applies deletions, then writes, then the new
	// metadata of a list. Either every change becomes visible or none does.
	ApplyBatch(list string, batch *Batch) error

	// DeleteList removes a list with all of its elements and hashes.
	// Idempotent - returns nil if the list doesn't exist.
	DeleteList(list string) error

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}

// LoadLength returns the number of elements in a list, 0 when it doesn't exist.
func LoadLength(store IListPersistence, list string) (uint64, error) {
	meta, err := store.LoadMeta(list)
	if err != nil {
		return 0, err
	}
	if meta == nil {
		return 0, nil
	}
	return meta.Length, nil
}
