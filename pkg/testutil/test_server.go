package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/config"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestServer is a proof list server over in-memory storage, listening on a
// local httptest server
type TestServer struct {
	Config *config.ProofListServerConfig
	Store  *memory.MemoryPersistence
	Group  *prooflist.Group[[]byte]
	Server *server.Server
	HTTP   *httptest.Server
	URL    string
	Logger *zap.Logger
}

// NewTestServer starts a test server. opts can adjust the configuration
// before the server is built. The server is closed when the test ends.
func NewTestServer(t *testing.T, opts ...func(cfg *config.ProofListServerConfig)) *TestServer {
	t.Helper()

	cfg := &config.ProofListServerConfig{
		Port:            config.DefaultPort,
		PersistenceType: config.PersistenceTypeMemory,
		Hasher:          merkle.HasherSHA256,
		MaxProofIndices: config.DefaultMaxProofIndices,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	require.NoError(t, cfg.Validate())

	hasher, err := cfg.NewHasher()
	require.NoError(t, err)

	l := zaptest.NewLogger(t)
	store := memory.NewMemoryPersistence()
	group := prooflist.NewGroup(store, codec.Bytes(), hasher, l)
	srv := server.NewServer(cfg, group, store, l)
	testServer := httptest.NewServer(srv.GetHandler())

	ts := &TestServer{
		Config: cfg,
		Store:  store,
		Group:  group,
		Server: srv,
		HTTP:   testServer,
		URL:    testServer.URL,
		Logger: l,
	}
	t.Cleanup(ts.Close)

	l.Sugar().Debugw("Started test server", "url", testServer.URL)
	return ts
}

// Close shuts down the HTTP server and the store
func (ts *TestServer) Close() {
	ts.HTTP.Close()
	_ = ts.Store.Close()
}
