// Package server serves the published catalog over the npm registry read protocol.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/ochairo/unitynuget/internal/external-adapters/fetch"
)

// CatalogProvider exposes the last published catalog and the build progress
type CatalogProvider interface {
	Catalog() *services.Catalog
	Status() entities.BuildStatus
	TimeRemaining() time.Duration
}

// HealthProvider exposes the state of upstream circuit breakers
type HealthProvider interface {
	BreakerStates() []fetch.BreakerState
}

type Server struct {
	Catalogs  CatalogProvider
	Health    HealthProvider // optional
	PublicKey []byte         // armored signing key, optional
	Logger    interfaces.Logger
}

func New(catalogs CatalogProvider, health HealthProvider, publicKey []byte, logger interfaces.Logger) *Server {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Server{
		Catalogs:  catalogs,
		Health:    health,
		PublicKey: publicKey,
		Logger:    logger,
	}
}

// Handler returns the routes of the registry
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /-/all", s.handleAll)
	mux.HandleFunc("GET /-/status", s.handleStatus)
	mux.HandleFunc("GET /-/health", s.handleHealth)
	mux.HandleFunc("GET /-/public-key", s.handlePublicKey)
	mux.HandleFunc("GET /{id}", s.handlePackage)
	mux.HandleFunc("GET /{id}/-/{file}", s.handleDownload)

	return s.logRequests(mux)
}

// Start listens on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", interfaces.F("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Debug("request",
			interfaces.F("method", r.Method),
			interfaces.F("path", r.URL.Path),
			interfaces.Duration(time.Since(start)))
	})
}
