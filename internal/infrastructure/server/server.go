// Package server wires the domain components behind the HTTP API.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/nwlens/nwlens/internal/api/http"
	"github.com/nwlens/nwlens/internal/api/middleware"
	"github.com/nwlens/nwlens/internal/api/ws"
	"github.com/nwlens/nwlens/internal/domain/discovery"
	"github.com/nwlens/nwlens/internal/domain/launcher"
	"github.com/nwlens/nwlens/internal/domain/orchestrator"
	"github.com/nwlens/nwlens/internal/domain/poller"
	"github.com/nwlens/nwlens/internal/domain/ports"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/config"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	store   *store.Store
	poller  *poller.Poller
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	cancel  context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing nwlens server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Int("port_pool_base", cfg.Ports.Base),
		zap.Int("port_pool_size", cfg.Ports.Size),
	)

	metrics := monitoring.NewMetrics()

	scanner, err := discovery.NewScanner(logger)
	if err != nil {
		return nil, fmt.Errorf("discovery unavailable: %w", err)
	}

	st := store.New(cfg.Debug.LogBufSize, logger)
	pool := ports.NewPool(cfg.Ports.Base, cfg.Ports.Size)
	pl := poller.New(st, cfg.Debug.PollInterval, cfg.Debug.PollTimeout, logger).WithMetrics(metrics)
	l := launcher.New(pool, st, pl, cfg.Debug.ReadyDelay, logger).WithMetrics(metrics)
	orch := orchestrator.New(scanner, st, l, logger).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(orch, st, logger)
	wsHandler := ws.NewHandler(st, logger).WithMetrics(metrics)

	router.GET("/health", handlers.Health)

	router.GET("/apps", handlers.ListApps)
	router.GET("/apps/:id/icon", handlers.AppIcon)
	router.POST("/discover", handlers.Discover)

	router.POST("/debug/start", handlers.StartDebug)

	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.GET("/sessions/:id/log", handlers.SessionLog)

	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		store:   st,
		poller:  pl,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the poller and the HTTP server
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.poller.Run(ctx)
	go s.updateUptime(ctx)

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close stops background work and flushes the logger
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Sync()
	return nil
}

func (s *Server) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.UpdateUptime()
			s.metrics.SessionsActive.Set(float64(len(s.store.LiveSessions())))
		}
	}
}
