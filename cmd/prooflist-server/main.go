package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/config"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	badgerPersistence "github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/memory"
	redisPersistence "github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/redis"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/server"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app := &cli.App{
		Name:  "prooflist-server",
		Usage: "Authenticated append-only list server",
		Description: `Stores append-only lists and serves Merkle proofs for any subset of their elements.

Every list is committed to by its list hash, which binds the element count to
the Merkle root. Clients holding a trusted list hash can verify any proof
returned by this server without trusting the server itself.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvProofListPort},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Aliases: []string{"store"},
				Value:   string(config.PersistenceTypeBadger),
				Usage:   fmt.Sprintf("Storage backend: %s", config.GetSupportedPersistenceTypesString()),
				EnvVars: []string{config.EnvProofListPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Value:   config.DefaultDataPath,
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvProofListDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Value:   config.DefaultRedisAddress,
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvProofListRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvProofListRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvProofListRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for all Redis keys",
				EnvVars: []string{config.EnvProofListRedisKeyPrefix},
			},
			&cli.StringFlag{
				Name:    "hasher",
				Value:   merkle.HasherSHA256,
				Usage:   fmt.Sprintf("Digest used for leaves, branches and list hashes: %v", merkle.SupportedHashers()),
				EnvVars: []string{config.EnvProofListHasher},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Value:   config.DefaultRateLimit,
				Usage:   "Requests per second accepted by the server, 0 disables limiting",
				EnvVars: []string{config.EnvProofListRateLimit},
			},
			&cli.IntFlag{
				Name:    "rate-burst",
				Value:   config.DefaultRateBurst,
				Usage:   "Burst size of the rate limiter",
				EnvVars: []string{config.EnvProofListRateBurst},
			},
			&cli.IntFlag{
				Name:    "max-proof-indices",
				Value:   config.DefaultMaxProofIndices,
				Usage:   "Maximum number of elements covered by one proof request",
				EnvVars: []string{config.EnvProofListMaxProofIndices},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvProofListVerbose},
			},
		},
		Action: runProofListServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runProofListServer(c *cli.Context) error {
	// Create logger
	loggerConfig := &logger.LoggerConfig{
		Debug: c.Bool("verbose"),
	}
	l, err := logger.NewLogger(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	serverConfig := parseServerConfig(c)
	if err := serverConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	hasher, err := serverConfig.NewHasher()
	if err != nil {
		return err
	}

	store, err := newPersistence(serverConfig, l)
	if err != nil {
		return fmt.Errorf("failed to create persistence: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Sugar().Errorw("Failed to close persistence", "error", err)
		}
	}()

	if c.Bool("verbose") {
		l.Sugar().Infow("Proof list server configuration",
			"port", serverConfig.Port,
			"persistence_type", serverConfig.PersistenceType,
			"hasher", hasher.Name(),
			"rate_limit", serverConfig.RateLimit,
			"rate_burst", serverConfig.RateBurst,
			"max_proof_indices", serverConfig.MaxProofIndices)
	}

	group := prooflist.NewGroup(store, codec.Bytes(), hasher, l)
	srv := server.NewServer(serverConfig, group, store, l)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	l.Sugar().Infow("Proof list server running", "port", serverConfig.Port)
	l.Sugar().Infow("Available endpoints",
		"lists", "GET /lists, GET /lists/{name}",
		"entries", "POST /lists/{name}/entries, GET /lists/{name}/entries/{index}",
		"proof", "GET /lists/{name}/proof",
		"verify", "POST /verify")
	l.Sugar().Info("Press Ctrl+C to stop")

	// run until receiving an interrupt signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	l.Sugar().Infow("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

func parseServerConfig(c *cli.Context) *config.ProofListServerConfig {
	return &config.ProofListServerConfig{
		Port:            c.Int("port"),
		PersistenceType: config.PersistenceType(c.String("persistence-type")),
		DataPath:        c.String("data-path"),
		Redis: config.RedisConfig{
			Address:   c.String("redis-address"),
			Password:  c.String("redis-password"),
			DB:        c.Int("redis-db"),
			KeyPrefix: c.String("redis-key-prefix"),
		},
		Hasher:          c.String("hasher"),
		RateLimit:       c.Float64("rate-limit"),
		RateBurst:       c.Int("rate-burst"),
		MaxProofIndices: c.Int("max-proof-indices"),
		Debug:           c.Bool("verbose"),
		Verbose:         c.Bool("verbose"),
	}
}

func newPersistence(cfg *config.ProofListServerConfig, l *zap.Logger) (persistence.IListPersistence, error) {
	switch cfg.PersistenceType {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		store, err := badgerPersistence.NewBadgerPersistence(cfg.DataPath, l)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.PersistenceTypeRedis:
		store, err := redisPersistence.NewRedisPersistence(&redisPersistence.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.PersistenceType)
	}
}
