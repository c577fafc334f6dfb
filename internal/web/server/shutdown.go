package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GracefulShutdown runs a server until its context ends, then drains it and
// runs cleanup hooks
type GracefulShutdown struct {
	server        *Server
	shutdownHooks []ShutdownHook
	timeout       time.Duration
	logger        *zap.Logger
	mu            sync.Mutex
	shutdownOnce  sync.Once
	shutdownChan  chan struct{}
	shutdownError error
}

// ShutdownHook is a function called during graceful shutdown
type ShutdownHook func(ctx context.Context) error

// ShutdownConfig holds graceful shutdown configuration
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for shutdown
	Timeout time.Duration

	// Logger for shutdown messages
	Logger *zap.Logger
}

// DefaultShutdownConfig returns default shutdown configuration
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Logger:  zap.NewNop(),
	}
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(server *Server, config *ShutdownConfig) *GracefulShutdown {
	if config == nil {
		config = DefaultShutdownConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultShutdownConfig().Timeout
	}

	return &GracefulShutdown{
		server:       server,
		timeout:      timeout,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}
}

// RegisterHook registers a shutdown hook. Hooks run in registration order
// before the HTTP server is drained.
func (gs *GracefulShutdown) RegisterHook(hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.shutdownHooks = append(gs.shutdownHooks, hook)
}

// Run serves until ctx is done or the server fails. Callers wire signals
// into ctx, typically with signal.NotifyContext.
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		gs.logger.Info("server listening", zap.String("addr", gs.server.Addr()))
		errChan <- gs.server.Start()
	}()

	select {
	case <-ctx.Done():
		gs.logger.Info("shutdown requested")
		return gs.Shutdown()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

// Shutdown performs graceful shutdown once; later calls wait for and
// return the first result
func (gs *GracefulShutdown) Shutdown() error {
	gs.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		gs.mu.Lock()
		hooks := make([]ShutdownHook, len(gs.shutdownHooks))
		copy(hooks, gs.shutdownHooks)
		gs.mu.Unlock()

		for i, hook := range hooks {
			if err := hook(ctx); err != nil {
				gs.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
			}
		}

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.shutdownError = fmt.Errorf("server shutdown error: %w", err)
			gs.logger.Error("server shutdown failed", zap.Error(err))
		} else {
			gs.logger.Info("server stopped")
		}

		close(gs.shutdownChan)
	})

	<-gs.shutdownChan
	return gs.shutdownError
}

// Wait blocks until shutdown is complete
func (gs *GracefulShutdown) Wait() error {
	<-gs.shutdownChan
	return gs.shutdownError
}
