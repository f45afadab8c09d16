// Package server exposes the Authorization Request Broker over HTTP and
// hosts the background expiry sweep.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pff-protocol/presence-core/internal/authreq"
	"github.com/pff-protocol/presence-core/internal/config"
	"github.com/pff-protocol/presence-core/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server hosts the broker API and the expiry sweeper.
type Server struct {
	config *config.Config
	broker *authreq.Broker

	httpServer *http.Server
	sweepStop  chan struct{}
}

func NewServer(cfg *config.Config, broker *authreq.Broker) *Server {
	if cfg == nil {
		logger.Fatal("Config cannot be nil")
	}
	if broker == nil {
		logger.Fatal("Broker cannot be nil")
	}

	s := &Server{
		config:    cfg,
		broker:    broker,
		sweepStop: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/requests", s.handleCreateRequest)
	mux.HandleFunc("GET /v1/requests/{id}", s.handleGetRequest)
	mux.HandleFunc("POST /v1/requests/{id}/resolve", s.handleResolveRequest)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      requestLogging(mux),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	return s
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Start begins serving and launches the sweeper. It returns once the
// listener is up; errors after that surface through the fx shutdowner.
func (s *Server) Start(_ context.Context, shutdowner fx.Shutdowner) error {
	go func() {
		logger.Info("Starting server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			_ = shutdowner.Shutdown()
		}
	}()
	go s.runSweeper()
	return nil
}

// Stop shuts the listener and the sweeper down.
func (s *Server) Stop(ctx context.Context) error {
	close(s.sweepStop)

	logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (s *Server) runSweeper() {
	ticker := time.NewTicker(s.config.Broker.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.config.Broker.SweepInterval)
			if _, err := s.broker.SweepExpired(ctx); err != nil {
				logger.Error("expiry sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Module provides the broker API server dependencies
var Module = fx.Module("broker_server",
	fx.Provide(
		NewServer,
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, shutdowner fx.Shutdowner) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return s.Start(ctx, shutdowner) },
			OnStop:  s.Stop,
		})
	}),
)
