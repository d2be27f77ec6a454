// Package api implements the bank's HTTP surface (spec.md §6): a
// healthcheck plus the versioned /api/v1 routes for minting and
// transferring reserves and notes, backed by the persisted store and the
// transaction composer. Routing follows the teacher's go.mod choice of
// julienschmidt/httprouter and rs/cors — neither is used by any handler in
// the teacher's own pruned tree, but both are named in its require block
// for exactly this job (SPEC_FULL.md's domain-stack table).
package api

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/chaincashlabs/chaincash/acceptance"
	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/internal/chainlog"
	"github.com/chaincashlabs/chaincash/store"
	"github.com/chaincashlabs/chaincash/txbuilder"
)

// BoxSource fetches the current on-chain state of a single box, used to
// re-read a note's or reserve's live box before composing a transaction
// against it — the store's own copy may lag the scanner's next tick.
type BoxSource interface {
	GetBox(ctx context.Context, id boxes.BoxID) (boxes.RawBox, error)
}

// HeightSource reports the ledger's current indexed height, used as
// CreationHeight for every output this process builds.
type HeightSource interface {
	IndexedHeight(ctx context.Context) (int32, error)
}

// KeySource retrieves the private scalar backing a wallet-held pubkey, to
// sign a note transfer. Mirrors nodeclient.Client.GetPrivateKey.
type KeySource interface {
	GetPrivateKey(ctx context.Context, pub string) (*big.Int, error)
}

// WalletPubkeySource lists the pubkeys this bank process's wallet
// currently controls, used to filter /reserves and /notes/wallet.
type WalletPubkeySource interface {
	WalletPubkeys(ctx context.Context) ([]*btcec.PublicKey, error)
}

// PredicateEntry names one loaded acceptance predicate (spec.md §4.8),
// as GET /acceptance reports it.
type PredicateEntry struct {
	Name      string
	Predicate acceptance.Predicate
}

// Config carries the fixed per-request transaction parameters the HTTP
// surface doesn't accept from the caller.
type Config struct {
	ChangeAddress string
	Fee           uint64
}

// Server wires every collaborator a handler needs: the transaction
// composer, the persisted store, the node's height/key/wallet-pubkey
// surface, and the loaded acceptance predicates.
type Server struct {
	Builder  *txbuilder.Builder
	Store    store.Store
	Boxes    BoxSource
	Height   HeightSource
	Keys     KeySource
	Wallet   WalletPubkeySource
	Predicates []PredicateEntry
	Config   Config

	log *chainlog.Logger
}

// New builds a Server. Every collaborator must be non-nil; Config.Fee
// defaults to 1_000_000 (the ledger's minimal relay fee) if zero.
func New(builder *txbuilder.Builder, db store.Store, boxes_ BoxSource, height HeightSource, keys KeySource, wallet WalletPubkeySource, predicates []PredicateEntry, cfg Config) *Server {
	if cfg.Fee == 0 {
		cfg.Fee = 1_000_000
	}
	return &Server{
		Builder:    builder,
		Store:      db,
		Boxes:      boxes_,
		Height:     height,
		Keys:       keys,
		Wallet:     wallet,
		Predicates: predicates,
		Config:     cfg,
		log:        chainlog.New("api"),
	}
}

// requestIDKey is the context key the request-id middleware attaches a
// per-request google/uuid under, for correlating a handler's log lines.
type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Router builds the full routed, CORS-wrapped, request-id-tagged handler.
func (s *Server) Router() http.Handler {
	r := httprouter.New()

	r.GET("/healthcheck", s.handleHealthcheck)

	r.POST("/api/v1/reserves/mint", s.handleMintReserve)
	r.POST("/api/v1/reserves/topup", s.handleTopUpReserve)
	r.GET("/api/v1/reserves", s.handleListReserves)

	r.POST("/api/v1/notes/mint", s.handleMintNote)
	r.POST("/api/v1/notes/spend", s.handleSpendNote)
	r.POST("/api/v1/notes/redeem", s.handleRedeemNote)
	r.GET("/api/v1/notes/wallet", s.handleListWalletNotes)
	r.GET("/api/v1/notes/byPubkey/:pubkey", s.handleListNotesByPubkey)

	r.GET("/api/v1/acceptance", s.handleListAcceptance)

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
	return withRequestID(handler)
}

// ListenAndServe starts the HTTP server on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown error", "err", err)
		}
	}()
	s.log.Info("listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) currentTxContext(ctx context.Context) (txbuilder.TxContext, error) {
	height, err := s.Height.IndexedHeight(ctx)
	if err != nil {
		return txbuilder.TxContext{}, err
	}
	return txbuilder.TxContext{
		CurrentHeight: uint32(height),
		ChangeAddress: s.Config.ChangeAddress,
		Fee:           s.Config.Fee,
	}, nil
}
