package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/config"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

/*
Server exposes a group of byte lists over HTTP.

Read endpoints:
  GET /health                       store health and configured hasher
  GET /lists                        names of all stored lists
  GET /lists/{name}                 length, height, merkle root and list hash
  GET /lists/{name}/entries/{index} a single element
  GET /lists/{name}/proof           proof for ?index=..&index=.. or ?from=..&to=..
                                    protobuf with Accept: application/x-protobuf

Write endpoints:
  POST   /lists/{name}/entries      append {values: [hex]}
  DELETE /lists/{name}              drop the list

Verification:
  POST /verify                      check a proof against a list hash, 422 when it fails

Every request gets an X-Request-ID and is subject to the token bucket limiter
when a rate limit is configured.
*/

// maxRequestBody bounds the size of append and verify bodies
const maxRequestBody = 16 << 20

// Server handles HTTP requests for a proof list group
type Server struct {
	group           *prooflist.Group[[]byte]
	store           persistence.IListPersistence
	logger          *zap.Logger
	limiter         *rate.Limiter
	maxProofIndices int
	httpServer      *http.Server
}

// NewServer creates a new server instance
func NewServer(
	cfg *config.ProofListServerConfig,
	group *prooflist.Group[[]byte],
	store persistence.IListPersistence,
	logger *zap.Logger,
) *Server {
	s := &Server{
		group:           group,
		store:           store,
		logger:          logger,
		maxProofIndices: cfg.MaxProofIndices,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// List endpoints
	mux.HandleFunc("GET /lists", s.handleListNames)
	mux.HandleFunc("GET /lists/{name}", s.handleListInfo)
	mux.HandleFunc("DELETE /lists/{name}", s.handleDeleteList)

	// Element endpoints
	mux.HandleFunc("POST /lists/{name}/entries", s.handleAppend)
	mux.HandleFunc("GET /lists/{name}/entries/{index}", s.handleGetEntry)

	// Proof endpoints
	mux.HandleFunc("GET /lists/{name}/proof", s.handleGetProof)
	mux.HandleFunc("POST /verify", s.handleVerify)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.withRequestID(s.withRateLimit(mux)),
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr, "hasher", s.group.Hasher().Name())
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop waits for in-flight requests to finish, or for ctx to expire
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
