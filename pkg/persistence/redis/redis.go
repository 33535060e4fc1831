package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixMeta        = "prooflist:meta:"
	keyPrefixValues      = "prooflist:values:"
	keyPrefixHashes      = "prooflist:hashes:"
	keySchemaVersion     = "prooflist:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetLists = "prooflist:lists:index"
)

// RedisPersistence is a persistence implementation using Redis.
// Each list is stored as one string key for its metadata and two Redis
// hashes, one for elements keyed by index and one for node hashes keyed
// by "height:index".
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	timeout   time.Duration
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IListPersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant setups).
	// If set, "myapp:" results in keys like "myapp:prooflist:meta:wallet".
	KeyPrefix string
	// Timeout bounds every Redis round trip. Defaults to 5 seconds.
	Timeout time.Duration
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
		timeout:   timeout,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if cfg.KeyPrefix != "" {
		logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	} else {
		logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB)
	}

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) metaKey(list string) string {
	return r.prefixKey(keyPrefixMeta + list)
}

func (r *RedisPersistence) valuesKey(list string) string {
	return r.prefixKey(keyPrefixValues + list)
}

func (r *RedisPersistence) hashesKey(list string) string {
	return r.prefixKey(keyPrefixHashes + list)
}

func indexField(index uint64) string {
	return strconv.FormatUint(index, 10)
}

func nodeField(key merkle.ProofListKey) string {
	return fmt.Sprintf("%d:%d", key.Height, key.Index)
}

func (r *RedisPersistence) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// LoadMeta returns the metadata of a list
func (r *RedisPersistence) LoadMeta(list string) (*persistence.ListMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.metaKey(list)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ListMeta: %w", err)
	}

	meta, err := persistence.UnmarshalListMeta(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ListMeta: %w", err)
	}

	return meta, nil
}

// ListNames returns the names of all lists sorted ascending
func (r *RedisPersistence) ListNames() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	names, err := r.client.SMembers(ctx, r.prefixKey(keySetLists)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// LoadValue returns the element at index
func (r *RedisPersistence) LoadValue(list string, index uint64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.HGet(ctx, r.valuesKey(list), indexField(index)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load element %d: %w", index, err)
	}

	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// LoadValues returns the elements in [from, to) with a single HMGET
func (r *RedisPersistence) LoadValues(list string, from, to uint64) ([][]byte, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range [%d, %d)", from, to)
	}
	if from == to {
		return [][]byte{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	fields := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		fields = append(fields, indexField(i))
	}

	ctx, cancel := r.opContext()
	defer cancel()

	raw, err := r.client.HMGet(ctx, r.valuesKey(list), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load elements [%d, %d): %w", from, to, err)
	}

	values := make([][]byte, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("element %d of list %s is missing", from+uint64(i), list)
		}
		values = append(values, []byte(s))
	}

	return values, nil
}

// LoadNodeHash returns the node hash stored at key
func (r *RedisPersistence) LoadNodeHash(list string, key merkle.ProofListKey) (*merkle.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.HGet(ctx, r.hashesKey(list), nodeField(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", key, err)
	}

	return persistence.DecodeHash(data)
}

// ApplyBatch writes batch inside a MULTI/EXEC transaction
func (r *RedisPersistence) ApplyBatch(list string, batch *persistence.Batch) error {
	if batch == nil {
		return fmt.Errorf("cannot apply nil Batch")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	meta, err := persistence.MarshalListMeta(&batch.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal ListMeta: %w", err)
	}

	valuesKey := r.valuesKey(list)
	hashesKey := r.hashesKey(list)

	ctx, cancel := r.opContext()
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(batch.DeletedValues) > 0 {
			fields := make([]string, len(batch.DeletedValues))
			for i, index := range batch.DeletedValues {
				fields[i] = indexField(index)
			}
			pipe.HDel(ctx, valuesKey, fields...)
		}
		if len(batch.DeletedHashes) > 0 {
			fields := make([]string, len(batch.DeletedHashes))
			for i, key := range batch.DeletedHashes {
				fields[i] = nodeField(key)
			}
			pipe.HDel(ctx, hashesKey, fields...)
		}
		if len(batch.Values) > 0 {
			values := make(map[string]interface{}, len(batch.Values))
			for index, value := range batch.Values {
				values[indexField(index)] = value
			}
			pipe.HSet(ctx, valuesKey, values)
		}
		if len(batch.Hashes) > 0 {
			hashes := make(map[string]interface{}, len(batch.Hashes))
			for key, hash := range batch.Hashes {
				hashes[nodeField(key)] = hash.Bytes()
			}
			pipe.HSet(ctx, hashesKey, hashes)
		}
		pipe.Set(ctx, r.metaKey(list), meta, 0)
		pipe.SAdd(ctx, r.prefixKey(keySetLists), list)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply batch to list %s: %w", list, err)
	}

	return nil
}

// DeleteList removes a list with all of its elements and hashes
func (r *RedisPersistence) DeleteList(list string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.metaKey(list), r.valuesKey(list), r.hashesKey(list))
		pipe.SRem(ctx, r.prefixKey(keySetLists), list)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete list %s: %w", list, err)
	}

	return nil
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Already closed, idempotent
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
