package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/AgentDesk/backend/internal/api/http"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/api/ws"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/preset"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	startupTimeout    = 30 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	store    *storage.Store
	manager  *terminal.Manager
	presets  *preset.Catalog
	launcher *launcher.Service
	router   *gin.Engine
	http     *http.Server
}

// NewServer opens storage and builds every component. The caller owns
// logger and closes it after Run returns.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing AgentDesk server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("db_path", cfg.Storage.Path),
	)

	metrics := monitoring.NewMetrics()

	store, err := storage.Open(cfg.Storage.Path, logger.Logger, storage.Options{
		BreakerFailures: cfg.Storage.BreakerFailures,
		BreakerTimeout:  cfg.Storage.BreakerTimeout,
		OnBreakerChange: func(_, to resilience.State) {
			metrics.SetBreakerState(to)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	presets, err := preset.NewCatalog(cfg.Terminal.PresetsFile, logger.Logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	manager := terminal.NewManager(store, store,
		terminal.WithLogger(logger.Logger),
		terminal.WithMetrics(metrics),
		terminal.WithDefaults(cfg.Terminal.DefaultCols, cfg.Terminal.DefaultRows, cfg.Terminal.Term),
	)

	svc := launcher.New(manager, store, presets,
		launcher.WithLogger(logger.Logger),
		launcher.WithMetrics(metrics),
		launcher.WithDefaultSize(cfg.Terminal.DefaultCols, cfg.Terminal.DefaultRows),
	)

	s := &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		store:    store,
		manager:  manager,
		presets:  presets,
		launcher: svc,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.BodyLimit(middleware.MaxBodySize))
	router.Use(middleware.RequestLogger(s.logger.Logger))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimit.RequestsPerSecond,
			Burst:             s.config.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(s.launcher, s.store, s.presets, s.metrics, s.logger.Logger)
	handlers.Register(router)

	wsHandler := ws.NewHandler(s.launcher, s.metrics, s.logger.Logger)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return router
}

// Router exposes the route table, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start brings saved sessions back in line with reality: with restore set
// the ones that were running are relaunched, otherwise all are marked
// stopped since no process survives a restart.
func (s *Server) Start(ctx context.Context, restore bool) error {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if restore {
		restored, err := s.launcher.RestoreAll(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to restore sessions: %w", err)
		}
		for _, info := range restored {
			s.logger.Session(info.ID).Info("Session restored",
				zap.String("command", info.Command),
				zap.Int("pid", info.Pid),
			)
		}
		s.logger.Info("Sessions restored", zap.Int("count", len(restored)))
		return nil
	}

	n, err := s.launcher.MarkAllStopped(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset saved sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("Marked stale sessions stopped", zap.Int64("count", n))
	}
	return nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts
// down. The preset watcher runs alongside the listener.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.presets.Watch(gctx); err != nil {
			// Presets still work without live reload.
			s.logger.Warn("Preset watcher stopped", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops accepting requests, closes every session and closes the
// database, in that order. Saved sessions keep their running status so the
// next start can restore them.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	s.launcher.Shutdown()
	s.logger.Info("Closed terminal sessions")

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	s.logger.Info("Closed storage")

	return errors.Join(errs...)
}
