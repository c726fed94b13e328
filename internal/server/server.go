// Package server exposes analysis sessions over an HTTP JSON API for the
// dashboard front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/gradelens/internal/cache"
	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/pipeline"
	"github.com/ppiankov/gradelens/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Server serves the session API
type Server struct {
	engine   *gin.Engine
	pipeline *pipeline.Pipeline
	sessions *cache.Store[*pipeline.Session]
	datasets *cache.Store[model.Dataset] // validated uploads by content hash
	limiter  *worker.Limiter
	validate *validator.Validate
	config   model.ServerConfig
	title    string
	logger   zerolog.Logger
}

// New creates a server over p. Sessions and cached datasets expire after
// the configured TTL of inactivity.
func New(cfg *model.Config, p *pipeline.Pipeline, logger zerolog.Logger) (*Server, error) {
	RegisterMetrics()
	logger = logger.With().Str("component", "server").Logger()

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		if len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		}
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		corsConfig.ExposeHeaders = []string{"Content-Disposition"}
		if err := corsConfig.Validate(); err != nil {
			return nil, fmt.Errorf("cors: %w", err)
		}
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		engine:   engine,
		pipeline: p,
		sessions: cache.NewStore[*pipeline.Session](cfg.Server.SessionTTL, cleanupInterval(cfg.Server.SessionTTL)),
		datasets: cache.NewStore[model.Dataset](cfg.Server.SessionTTL, cleanupInterval(cfg.Server.SessionTTL)),
		limiter:  worker.NewLimiter(cfg.Server.RequestsPerSecond, cfg.Server.BurstSize),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		config:   cfg.Server,
		title:    cfg.Output.ReportTitle,
		logger:   logger,
	}

	s.sessions.OnEvicted(func(id string, _ *pipeline.Session) {
		sessionsActive.Dec()
		s.logger.Debug().Str("session", id).Msg("session removed")
	})

	s.setupRoutes()
	return s, nil
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	if interval := ttl / 4; interval > time.Second {
		return interval
	}
	return time.Second
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api", rateLimit(s.limiter))
	api.POST("/sessions", s.createSession)
	api.POST("/sessions/sample", s.createSampleSession)

	session := api.Group("/sessions/:id")
	session.GET("/metrics", s.getMetrics)
	session.GET("/records", s.getRecords)
	session.GET("/review-queue", s.getReviewQueue)
	session.PUT("/filters", s.setFilter)
	session.DELETE("/filters", s.clearFilter)
	session.GET("/export/:kind", s.export)
	session.DELETE("", s.deleteSession)
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
