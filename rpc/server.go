package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bondcurve/native/bonding"
	"bondcurve/native/token"
	"bondcurve/storage/audit"
)

// Querier is the read side of the executor.
type Querier interface {
	CurveInfo(ctx context.Context) (*bonding.CurveInfo, error)
	ParamConfig(ctx context.Context) (bonding.ParamConfig, error)
	AcctConfig(ctx context.Context) (bonding.AcctConfig, error)
	DexferConfig(ctx context.Context) (bonding.DexferConfig, error)
	SafetyConfig(ctx context.Context) (bonding.SafetyConfig, error)
	Quote(ctx context.Context, payment *uint256.Int) (*uint256.Int, error)
	TokenInfo(ctx context.Context) (*token.Info, error)
	Balance(ctx context.Context, addr string) (*uint256.Int, error)
	Allowance(ctx context.Context, owner, spender string) (*uint256.Int, error)
}

// AuditReader lists committed settlements.
type AuditReader interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Record, error)
}

// Config wires the API server.
type Config struct {
	ListenAddress  string
	RateLimit      RateLimit
	QuoteCacheSize int
	Logger         *slog.Logger
	// Audit is optional; /v1/settlements answers 503 without it.
	Audit AuditReader
}

// Server exposes the read-only bonding API over HTTP.
type Server struct {
	cfg     Config
	query   Querier
	audit   AuditReader
	limiter *RateLimiter
	quotes  *lru.Cache[string, string]
	logger  *slog.Logger
	srv     *http.Server
}

func NewServer(query Querier, cfg Config) (*Server, error) {
	if query == nil {
		return nil, fmt.Errorf("rpc: querier required")
	}
	if cfg.QuoteCacheSize <= 0 {
		cfg.QuoteCacheSize = 256
	}
	cache, err := lru.New[string, string](cfg.QuoteCacheSize)
	if err != nil {
		return nil, fmt.Errorf("rpc: quote cache: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		query:   query,
		audit:   cfg.Audit,
		limiter: NewRateLimiter(cfg.RateLimit),
		quotes:  cache,
		logger:  logger,
	}, nil
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(instrument(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)
		v1.Get("/curve", s.handleCurve)
		v1.Get("/config/{record}", s.handleConfig)
		v1.Get("/quote", s.handleQuote)
		v1.Get("/token", s.handleToken)
		v1.Get("/balance/{address}", s.handleBalance)
		v1.Get("/allowance/{owner}/{spender}", s.handleAllowance)
		v1.Get("/settlements", s.handleSettlements)
	})
	return otelhttp.NewHandler(r, "bondingd.api")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server not configured")
	}
	s.srv = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api listening", slog.String("address", s.cfg.ListenAddress))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}
