package redis

import (
	"os"
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/persistencetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not available. Every call gets
// its own key prefix so runs never see each other's lists.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: "test-" + uuid.NewString() + ":",
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	return rp
}

func TestRedisPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.IListPersistence {
		return requireRedis(t)
	})
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	assert.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	assert.Error(t, err)
}

func TestRedisPersistence_KeyLayout(t *testing.T) {
	rp := &RedisPersistence{keyPrefix: "tenant:"}

	assert.Equal(t, "tenant:prooflist:meta:wallet", rp.metaKey("wallet"))
	assert.Equal(t, "tenant:prooflist:values:wallet", rp.valuesKey("wallet"))
	assert.Equal(t, "tenant:prooflist:hashes:wallet", rp.hashesKey("wallet"))
	assert.Equal(t, "3:17", nodeField(merkle.ProofListKey{Index: 17, Height: 3}))
	assert.Equal(t, "42", indexField(42))

	bare := &RedisPersistence{}
	assert.Equal(t, "prooflist:meta:wallet", bare.metaKey("wallet"))
}

func TestRedisPersistence_HealthCheck_AfterClose(t *testing.T) {
	rp := requireRedis(t)

	require.NoError(t, rp.HealthCheck())
	require.NoError(t, rp.Close())
	assert.ErrorIs(t, rp.HealthCheck(), persistence.ErrClosed)
}
