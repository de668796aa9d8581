// Package api exposes the wallet daemon's REST surface: single-key wallet
// operations, unsigned message builders, and the two-round aggregated signing
// protocol.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mosaiclabs/soltss/pkg/chain"
	"github.com/mosaiclabs/soltss/pkg/config"
	"github.com/mosaiclabs/soltss/pkg/musig"
	"github.com/mosaiclabs/soltss/pkg/sigstore"
	"github.com/mosaiclabs/soltss/pkg/types"
)

// ChainClient is the subset of the RPC client the handlers need. It exists so
// tests can serve the API without a live cluster.
type ChainClient interface {
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (string, uint8, error)
	MinimumRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}

// ChainDialer resolves a network name to an RPC client.
type ChainDialer func(network types.Network) (ChainClient, error)

// DefaultDialer connects to the public cluster endpoints.
func DefaultDialer(logger zerolog.Logger) ChainDialer {
	return func(network types.Network) (ChainClient, error) {
		return chain.Dial(network, logger)
	}
}

type Server struct {
	engine *musig.Engine
	sigs   *sigstore.Store
	dial   ChainDialer
	logger zerolog.Logger
	router chi.Router
	server *http.Server
}

func NewServer(cfg config.Config, engine *musig.Engine, sigs *sigstore.Store, dial ChainDialer, logger zerolog.Logger) *Server {
	s := &Server{
		engine: engine,
		sigs:   sigs,
		dial:   dial,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(RateLimitMiddleware(cfg.RateLimitPerMinute))

	// Health check (public, outside /api/v1, for probes)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Single-key wallet operations
		r.Get("/generate", s.handleGenerate)
		r.Post("/balance", s.handleBalance)
		r.Post("/airdrop", s.handleAirdrop)
		r.Post("/send_single", s.handleSendSingle)
		r.Post("/recent_block_hash", s.handleRecentBlockhash)
		r.Post("/spl_token_balance", s.handleSPLTokenBalance)
		r.Post("/spl_send_single", s.handleSPLSendSingle)
		r.Post("/stake_account", s.handleStakeAccount)
		r.Post("/deactivate_stake", s.handleDeactivateStake)
		r.Post("/withdraw_stake", s.handleWithdrawStake)

		// Aggregated signing
		r.Post("/aggregate_keys", s.handleAggregateKeys)
		r.Post("/agg_send_step_one", s.handleStepOne)
		r.Post("/agg_send_step_two", s.handleStepTwo)
		r.Post("/aggregate_signatures", s.handleAggregateSignatures)
		r.Get("/signatures/{session_id}", s.handleGetSignature)

		// Unsigned message builders
		r.Route("/messages", func(r chi.Router) {
			r.Post("/transfer", s.handleBuildTransfer)
			r.Post("/spl_transfer", s.handleBuildSPLTransfer)
			r.Post("/stake_create", s.handleBuildStakeCreate)
			r.Post("/stake_deactivate", s.handleBuildStakeDeactivate)
			r.Post("/stake_withdraw", s.handleBuildStakeWithdraw)
		})
	})

	s.router = r
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
