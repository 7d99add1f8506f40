// Package server exposes classification reports through a read-only JSON API.
//
// The current report is served at the root:
//
//	GET /stats
//	GET /labels                 ?component=Base
//	GET /labels/{name}
//	GET /packages/{name}        by package ID or name
//	GET /builds/{name}
//	GET /unresolved             ?kind=ambiguous
//	GET /conflicts
//
// With a store configured, every stored run is served below /runs/{id} with
// the same routes, and GET /runs lists the stored runs, newest first.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/store"
)

// ShutdownTimeout bounds the graceful shutdown of [Server.Serve].
const ShutdownTimeout = 5 * time.Second

// Config holds configuration for the server.
type Config struct {
	Addr string
	// Report is served at the root routes. It can be replaced later with
	// [Server.SetReport].
	Report *result.Report
	// Store enables the /runs routes.
	Store  store.Store
	Logger *log.Logger
}

// Server serves reports over HTTP.
type Server struct {
	addr   string
	store  store.Store
	logger *log.Logger

	mu     sync.RWMutex
	report *result.Report
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:   cfg.Addr,
		store:  cfg.Store,
		logger: logger,
		report: cfg.Report,
	}
}

// SetReport replaces the report served at the root routes.
func (s *Server) SetReport(rep *result.Report) {
	s.mu.Lock()
	s.report = rep
	s.mu.Unlock()
}

func (s *Server) current() *result.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Serve listens on the configured address and blocks until ctx is canceled
// or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("serving reports", "addr", s.addr)

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
