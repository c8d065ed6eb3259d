// Package server exposes scoring, bonus lookup and the ledger over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/xpnc/internal/bonus"
	"github.com/ppiankov/xpnc/internal/metrics"
	"github.com/ppiankov/xpnc/internal/model"
	"github.com/ppiankov/xpnc/internal/store"
)

// Scorer scores one submission and never fails
type Scorer interface {
	ScoreImpact(ctx context.Context, sub model.Submission) model.ScoreResult
}

// Ledger is the persistence the server reads and writes
type Ledger interface {
	SaveScored(ctx context.Context, sub model.Submission, result model.ScoreResult) (model.ScoredSubmission, error)
	Get(ctx context.Context, id string) (model.ScoredSubmission, error)
	ListByUser(ctx context.Context, userID string) ([]model.ScoredSubmission, error)
	BadgesByUser(ctx context.Context, userID string) ([]store.EarnedBadge, error)
	TotalsByUser(ctx context.Context, userID string) (store.Totals, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Option configures a Server
type Option func(*Server)

// WithLedger enables persistence of scored submissions and the ledger routes
func WithLedger(l Ledger) Option {
	return func(s *Server) {
		s.ledger = l
	}
}

// WithMetrics records request metrics and serves /metrics
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTable replaces the bonus table
func WithTable(t *bonus.Table) Option {
	return func(s *Server) {
		if t != nil {
			s.table = t
		}
	}
}

// WithClock overrides the time source for date-based lookups
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is the HTTP intake
type Server struct {
	scorer  Scorer
	ledger  Ledger
	metrics *metrics.Manager
	logger  *zap.Logger
	table   *bonus.Table
	now     func() time.Time
}

// New creates a server around scorer
func New(scorer Scorer, opts ...Option) *Server {
	s := &Server{
		scorer: scorer,
		logger: zap.NewNop(),
		table:  bonus.Default,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	if s.metrics != nil {
		router.Use(s.instrument())
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	router.GET("/health", s.health)

	s.RegisterRoutes(router.Group("/api/v1"))
	return router
}

// RegisterRoutes registers the API routes on rg
func (s *Server) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/score", s.scoreSubmission)
	rg.GET("/bonus", s.listBonuses)
	rg.GET("/bonus/:month", s.getBonus)
	rg.GET("/tokens/:score", s.tokens)

	if s.ledger != nil {
		rg.GET("/submissions/:id", s.getSubmission)
		rg.GET("/users/:id/summary", s.userSummary)
		rg.GET("/stats", s.stats)
	}
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	// scoring calls can take up to the scorer timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
