package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"nmsweep/internal/config"
)

const (
	ReadTimeout     = 15 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// NewRouter builds the HTTP handler serving the API
func NewRouter(backend Backend, cfg config.ServerCfg, logger zerolog.Logger) http.Handler {
	h := &handlers{backend: backend, logger: logger}

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(SecurityHeadersMiddleware)
	router.Use(RequestBodySizeLimitMiddleware(cfg.MaxBodyBytes))
	router.Use(NewRateLimiter(rate.Limit(cfg.RateLimit), cfg.Burst).Middleware())

	router.HandleFunc("/api/v1/health", HealthHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/api/v1/scan", h.scan).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/delete", h.delete).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/size", h.size).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/history", h.history).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "no such endpoint", http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return router
}

// Server serves the API until its context is canceled
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a server listening on cfg.Addr
func NewServer(backend Backend, cfg config.ServerCfg, logger zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:        cfg.Addr,
			Handler:     NewRouter(backend, cfg, logger),
			ReadTimeout: ReadTimeout,
			IdleTimeout: IdleTimeout,
			// No write timeout: a scan of a large tree can take minutes.
		},
		logger: logger,
	}
}

// Run listens until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
