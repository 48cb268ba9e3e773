// Package daemon manages the service lifecycle: HTTP servers, graceful
// shutdown and cleanup hooks.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/checkcells/checkcells/internal/config"
	"github.com/checkcells/checkcells/internal/log"
)

// ErrNotStarted is returned when Shutdown is called before Start.
var ErrNotStarted = errors.New("daemon: manager not started")

// ShutdownHook is a cleanup function run during graceful shutdown.
// Hooks execute in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Manager runs the upload API server and, when enabled, a separate
// metrics server, and owns their shutdown.
type Manager struct {
	cfg            config.AppConfig
	apiHandler     http.Handler
	metricsHandler http.Handler

	apiServer     *http.Server
	metricsServer *http.Server

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

// NewManager wires a manager around the given handlers. metricsHandler
// may be nil to disable the metrics listener.
func NewManager(cfg config.AppConfig, apiHandler, metricsHandler http.Handler) *Manager {
	return &Manager{
		cfg:            cfg,
		apiHandler:     apiHandler,
		metricsHandler: metricsHandler,
		logger:         log.WithComponent("manager"),
	}
}

// RegisterShutdownHook registers a cleanup function to run during
// shutdown.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}

// Start launches all servers and blocks until ctx is cancelled or a
// server fails.
func (m *Manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("daemon: start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("daemon: manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.cfg.ListenAddr).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("starting daemon manager")

	errChan := make(chan error, 2)

	if m.cfg.MetricsEnabled && m.metricsHandler != nil {
		m.metricsServer = &http.Server{
			Addr:              m.cfg.MetricsAddr,
			Handler:           m.metricsHandler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			m.logger.Info().Str("addr", m.cfg.MetricsAddr).Msg("metrics server listening")
			if err := m.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	m.apiServer = &http.Server{
		Addr:              m.cfg.ListenAddr,
		Handler:           m.apiHandler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads can be large; no blanket read/write deadline here.
		IdleTimeout: 120 * time.Second,
	}
	go func() {
		m.logger.Info().Str("addr", m.cfg.ListenAddr).Msg("API server listening")
		if err := m.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server error, initiating shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the servers and runs the hooks in LIFO order. Safe to
// call once; repeated calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("daemon: shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.stopping = true
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down")

	var errs []error
	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for i := len(m.shutdownHooks) - 1; i >= 0; i-- {
		h := m.shutdownHooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().Str("hook", h.name).Dur("elapsed", time.Since(start)).Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("daemon: shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Msg("stopped cleanly")
	return nil
}
