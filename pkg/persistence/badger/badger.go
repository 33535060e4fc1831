package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// Key prefixes for namespacing
const (
	keyPrefixMeta        = "meta:list:"
	keyPrefixValue       = "val:"
	keyPrefixHash        = "hash:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a production-ready persistence implementation using Badger.
// Provides durable, disk-based storage with ACID guarantees.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.IListPersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence creates a new Badger-backed persistence layer.
// The database is opened at the specified path with SyncWrites enabled for durability.
// A background goroutine is started for garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic value log garbage collection in the background
func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func metaKey(list string) []byte {
	return []byte(keyPrefixMeta + list)
}

func valuePrefix(list string) []byte {
	return []byte(keyPrefixValue + list + ":")
}

func valueKey(list string, index uint64) []byte {
	return append(valuePrefix(list), persistence.EncodeIndex(index)...)
}

func hashPrefix(list string) []byte {
	return []byte(keyPrefixHash + list + ":")
}

func hashKey(list string, key merkle.ProofListKey) []byte {
	return append(hashPrefix(list), persistence.EncodeNodeKey(key)...)
}

// get copies the value stored at key, returning nil when it is absent
func get(txn *badgerdb.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy([]byte{})
}

// LoadMeta returns the metadata of a list
func (b *BadgerPersistence) LoadMeta(list string) (*persistence.ListMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = get(txn, metaKey(list))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ListMeta: %w", err)
	}

	if data == nil {
		return nil, nil // Not found
	}

	meta, err := persistence.UnmarshalListMeta(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ListMeta: %w", err)
	}

	return meta, nil
}

// ListNames returns the names of all lists sorted ascending
func (b *BadgerPersistence) ListNames() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	names := []string{}
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixMeta)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), keyPrefixMeta))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// LoadValue returns the element at index
func (b *BadgerPersistence) LoadValue(list string, index uint64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = get(txn, valueKey(list, index))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load element %d: %w", index, err)
	}

	return data, nil
}

// LoadValues returns the elements in [from, to) with a single prefix scan
func (b *BadgerPersistence) LoadValues(list string, from, to uint64) ([][]byte, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range [%d, %d)", from, to)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	values := make([][]byte, 0, to-from)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = valuePrefix(list)

		it := txn.NewIterator(opts)
		defer it.Close()

		next := from
		for it.Seek(valueKey(list, from)); it.Valid() && next < to; it.Next() {
			item := it.Item()
			if string(item.Key()) != string(valueKey(list, next)) {
				return fmt.Errorf("element %d of list %s is missing", next, list)
			}

			value, err := item.ValueCopy([]byte{})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}
			values = append(values, value)
			next++
		}

		if next < to {
			return fmt.Errorf("element %d of list %s is missing", next, list)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load elements [%d, %d): %w", from, to, err)
	}

	return values, nil
}

// LoadNodeHash returns the node hash stored at key
func (b *BadgerPersistence) LoadNodeHash(list string, key merkle.ProofListKey) (*merkle.Hash, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = get(txn, hashKey(list, key))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", key, err)
	}

	if data == nil {
		return nil, nil
	}
	return persistence.DecodeHash(data)
}

// ApplyBatch writes batch in a single transaction
func (b *BadgerPersistence) ApplyBatch(list string, batch *persistence.Batch) error {
	if batch == nil {
		return fmt.Errorf("cannot apply nil Batch")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	meta, err := persistence.MarshalListMeta(&batch.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal ListMeta: %w", err)
	}

	err = b.db.Update(func(txn *badgerdb.Txn) error {
		for _, index := range batch.DeletedValues {
			if err := txn.Delete(valueKey(list, index)); err != nil {
				return err
			}
		}
		for _, key := range batch.DeletedHashes {
			if err := txn.Delete(hashKey(list, key)); err != nil {
				return err
			}
		}
		for index, value := range batch.Values {
			if err := txn.Set(valueKey(list, index), value); err != nil {
				return err
			}
		}
		for key, hash := range batch.Hashes {
			if err := txn.Set(hashKey(list, key), hash.Bytes()); err != nil {
				return err
			}
		}
		return txn.Set(metaKey(list), meta)
	})
	if err != nil {
		return fmt.Errorf("failed to apply batch to list %s: %w", list, err)
	}

	return nil
}

// DeleteList removes a list with all of its elements and hashes
func (b *BadgerPersistence) DeleteList(list string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	// meta goes first, an interrupted drop leaves only unreachable data
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(metaKey(list))
	})
	if err != nil {
		return fmt.Errorf("failed to delete meta of list %s: %w", list, err)
	}

	if err := b.db.DropPrefix(valuePrefix(list), hashPrefix(list)); err != nil {
		return fmt.Errorf("failed to drop list %s: %w", list, err)
	}
	return nil
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
