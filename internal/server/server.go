// Package server provides the HTTP preview API for a workspace: expression
// evaluation and validation, quote totals, link checks and a live SSE stream
// of quote totals that follows workspace edits.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/internal/server/notifier"
)

const (
	sessionName     = "leapcalc"
	sessionQuoteKey = "quote_id"
	debounceDelay   = 100 * time.Millisecond
)

// Server is the preview API server.
type Server struct {
	engine          *engine.Engine
	sessionStore    *sessions.CookieStore
	port            int
	watch           bool
	maxConnections  int
	shutdownTimeout time.Duration
	logger          *slog.Logger
	notifier        *notifier.Notifier

	// ready is closed once the listener is bound; addr is valid after it.
	ready chan struct{}
	addr  net.Addr
}

// Config holds configuration for the preview server.
type Config struct {
	Engine *engine.Engine
	// Port to listen on; 0 picks a free port.
	Port  int
	Watch bool
	// MaxConnections caps concurrent connections; 0 means unlimited.
	MaxConnections int
	// SessionSecret signs the session cookie. A random secret is used when
	// empty, so sessions do not survive a restart.
	SessionSecret   string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// New creates a preview server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
	}
	sessionStore := sessions.NewCookieStore([]byte(secret))
	sessionStore.MaxAge(86400 * 7)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Server{
		engine:          cfg.Engine,
		sessionStore:    sessionStore,
		port:            cfg.Port,
		watch:           cfg.Watch,
		maxConnections:  cfg.MaxConnections,
		shutdownTimeout: timeout,
		logger:          logger,
		notifier:        notifier.New(),
		ready:           make(chan struct{}),
	}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", s.handleModules)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/validate", s.handleValidate)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/quotes/{id}", s.handleQuote)
		r.Post("/links/check", s.handleLinkCheck)
		r.Post("/session/quote", s.handleSelectQuote)
	})
	r.Get("/events", s.handleEvents)

	return r
}

// Notifier returns the server's reload notifier.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Addr blocks until the listener is bound and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
		return s.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if s.maxConnections > 0 {
		ln = netutil.LimitListener(ln, s.maxConnections)
	}
	s.addr = ln.Addr()
	close(s.ready)

	s.logger.Info("starting preview server", "addr", s.addr.String(), "watch", s.watch)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchWorkspace(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
