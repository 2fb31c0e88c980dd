package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/internal/metrics"
	"github.com/kij-exe/hypr-ledger/internal/services/ledger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Ledger is the read side the API serves.
type Ledger interface {
	PositionHistory(ctx context.Context, q ledger.Query) ([]domain.PositionState, error)
	Lifecycles(ctx context.Context, q ledger.Query) ([]domain.Lifecycle, error)
	Trades(ctx context.Context, q ledger.Query) ([]domain.Trade, error)
	PnL(ctx context.Context, q ledger.Query, maxStartCapital decimal.Decimal) (domain.PnLResult, error)
	Leaderboard(ctx context.Context, users []string, q ledger.Query, metric domain.Metric, maxStartCapital decimal.Decimal) ([]domain.LeaderboardEntry, error)
	CombinedLeaderboard(ctx context.Context, users []string, q ledger.Query, maxStartCapital decimal.Decimal) ([]domain.CombinedLeaderboardEntry, error)
	Deposits(ctx context.Context, user string, fromMs, toMs *int64) (domain.DepositSummary, error)
	CurrentPositions(ctx context.Context, user string) (domain.AccountState, error)
}

// Options tune the API.
type Options struct {
	// MaxStartCapital is used when a request carries no maxStartCapital.
	MaxStartCapital decimal.Decimal
	CORSOrigins     []string
}

// Server exposes the ledger over a JSON REST API.
type Server struct {
	Addr   string
	ledger Ledger
	opts   Options
	router *mux.Router
	l      *zap.Logger
}

// NewServer creates a new API server.
func NewServer(addr string, ledger Ledger, opts Options, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{
		Addr:   addr,
		ledger: ledger,
		opts:   opts,
		router: mux.NewRouter(),
		l:      l,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID, s.instrument)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	api.HandleFunc("/positions/history", s.handlePositionHistory).Methods(http.MethodGet)
	api.HandleFunc("/positions/lifecycles", s.handleLifecycles).Methods(http.MethodGet)
	api.HandleFunc("/positions/current", s.handleCurrentPositions).Methods(http.MethodGet)
	api.HandleFunc("/pnl", s.handlePnL).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/combined", s.handleCombinedLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/deposits", s.handleDeposits).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(s.router)
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("api server starting", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
