package config

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for proof list server configuration
const (
	EnvProofListPort            = "PROOFLIST_PORT"
	EnvProofListPersistenceType = "PROOFLIST_PERSISTENCE_TYPE"
	EnvProofListDataPath        = "PROOFLIST_DATA_PATH"
	EnvProofListRedisAddress    = "PROOFLIST_REDIS_ADDRESS"
	EnvProofListRedisPassword   = "PROOFLIST_REDIS_PASSWORD"
	EnvProofListRedisDB         = "PROOFLIST_REDIS_DB"
	EnvProofListRedisKeyPrefix  = "PROOFLIST_REDIS_KEY_PREFIX"
	EnvProofListHasher          = "PROOFLIST_HASHER"
	EnvProofListRateLimit       = "PROOFLIST_RATE_LIMIT"
	EnvProofListRateBurst       = "PROOFLIST_RATE_BURST"
	EnvProofListMaxProofIndices = "PROOFLIST_MAX_PROOF_INDICES"
	EnvProofListVerbose         = "PROOFLIST_VERBOSE"
)

// Environment variable names for the proof list client
const (
	EnvProofListServerURL = "PROOFLIST_SERVER_URL"
)

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// GetSupportedPersistenceTypes returns all supported storage backends
func GetSupportedPersistenceTypes() []PersistenceType {
	return []PersistenceType{
		PersistenceTypeMemory,
		PersistenceTypeBadger,
		PersistenceTypeRedis,
	}
}

// GetSupportedPersistenceTypesString returns supported backends for CLI help
func GetSupportedPersistenceTypesString() string {
	names := make([]string, 0, 3)
	for _, p := range GetSupportedPersistenceTypes() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

// Defaults applied by the CLI
const (
	DefaultPort            = 8080
	DefaultDataPath        = "./data/prooflist"
	DefaultRedisAddress    = "localhost:6379"
	DefaultRateLimit       = 50.0
	DefaultRateBurst       = 100
	DefaultMaxProofIndices = 1024
)

// RedisConfig holds the connection settings of the redis backend
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"-"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// ProofListServerConfig represents the complete configuration for a proof list server
type ProofListServerConfig struct {
	Port int `json:"port"`

	// Storage
	PersistenceType PersistenceType `json:"persistence_type"`
	DataPath        string          `json:"data_path"` // Badger directory
	Redis           RedisConfig     `json:"redis"`

	// Hasher is the digest used for every list served, see merkle.NewHasher
	Hasher string `json:"hasher"`

	// Request limits
	RateLimit       float64 `json:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst       int     `json:"rate_burst"`
	MaxProofIndices int     `json:"max_proof_indices"`

	// Operational settings
	Debug   bool `json:"debug"`
	Verbose bool `json:"verbose"`
}

// Validate validates the proof list server configuration
func (c *ProofListServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}

	switch c.PersistenceType {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if c.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redis", "address"), "address is required for redis persistence"))
		}
		if c.Redis.DB < 0 || c.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redis", "db"), c.Redis.DB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("persistenceType"), c.PersistenceType, []string{
			string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis),
		}))
	}

	if _, err := merkle.NewHasher(c.Hasher); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("hasher"), c.Hasher, merkle.SupportedHashers()))
	}

	if c.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), c.RateLimit, "must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateBurst"), c.RateBurst, "must be at least 1 when rate limiting is enabled"))
	}
	if c.MaxProofIndices < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxProofIndices"), c.MaxProofIndices, "must be at least 1"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// NewHasher returns the hasher selected by the configuration
func (c *ProofListServerConfig) NewHasher() (merkle.Hasher, error) {
	h, err := merkle.NewHasher(c.Hasher)
	if err != nil {
		return nil, fmt.Errorf("invalid hasher: %w", err)
	}
	return h, nil
}
