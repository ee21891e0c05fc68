// Package server exposes the export pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/aidanlsb/tabula/internal/export"
	"github.com/aidanlsb/tabula/internal/logging"
)

// ExportPath is the route template of the export endpoint.
const ExportPath = "/api/tenants/{tenantId}/databases/{databaseId}/tables/{tableId}/export"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Exporter *export.Exporter
	Store    Pinger

	// Authorizer gates the export route; nil allows every request.
	Authorizer Authorizer

	// DefaultLimit applies when a request has no usable limit.
	DefaultLimit int

	// RateLimitPerMinute of 0 disables limiting.
	RateLimitPerMinute int
	RateLimitBurst     int

	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Location dates the attachment filename; nil means UTC.
	Location *time.Location
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Server serves the export API.
type Server struct {
	opts    Options
	logger  *slog.Logger
	limiter *rateLimiter
	handler http.Handler
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Authorizer == nil {
		opts.Authorizer = AllowAll{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		opts:    opts,
		logger:  logging.Default(opts.Logger).With("component", "server"),
		limiter: newRateLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst, opts.Clock),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	gated := Chain(rateLimitMiddleware(s.limiter), s.authorize)
	router.Handle(ExportPath, gated(http.HandlerFunc(s.handleExport))).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed", nil)
	})

	s.handler = Chain(requestLogger(s.logger))(router)
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
	}

	var wg sync.WaitGroup
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer func() {
		stopCleanup()
		wg.Wait()
	}()
	if s.limiter != nil {
		s.limiter.startCleanup(cleanupCtx, &wg, time.Minute, 10*time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server started", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// authorize runs the gate for the tenant in the route.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := pathID(r, "tenantId")
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		claims, err := s.opts.Authorizer.Authorize(r, tenantID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store != nil {
		if err := s.opts.Store.Ping(r.Context()); err != nil {
			s.respondError(w, r, fmt.Errorf("ping store: %w", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// pathID parses a positive integer route variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &export.ParameterError{
			Param:   name,
			Message: fmt.Sprintf("%q is not a valid id", raw),
		}
	}
	return id, nil
}
