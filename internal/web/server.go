// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package web serves the armory JSON API over gin.
//
// The authenticated user id and the active character id live in a signed
// cookie session. Every handler re-validates ownership through the character
// package before exposing a character.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/armoryhq/armory/internal/auth"
	"github.com/armoryhq/armory/internal/character"
	"github.com/armoryhq/armory/internal/observability"
)

const sessionName = "armory_session"

// Authenticator checks login credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.User, error)
}

// Deps are the services the API delegates to. All are required.
type Deps struct {
	Auth       Authenticator
	Characters character.Repository
	Validator  *character.Validator
	Resolver   *character.Resolver
	Deleter    *character.Deleter
}

// Options configure the session cookie and instrumentation.
type Options struct {
	SessionKey     string
	SessionMaxAge  time.Duration
	SessionSecure  bool
	// RequestTimeout bounds each request's context. Zero means no deadline.
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// Metrics is optional; nil disables request metrics.
	Metrics *observability.Metrics
}

// Server is the HTTP API.
type Server struct {
	deps       Deps
	engine     *gin.Engine
	logger     *slog.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New builds the router.
func New(deps Deps, opts Options) (*Server, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Errorf("authenticator is required")
	case deps.Characters == nil:
		return nil, oops.Errorf("character repository is required")
	case deps.Validator == nil:
		return nil, oops.Errorf("ownership validator is required")
	case deps.Resolver == nil:
		return nil, oops.Errorf("active character resolver is required")
	case deps.Deleter == nil:
		return nil, oops.Errorf("character deleter is required")
	case opts.SessionKey == "":
		return nil, oops.Errorf("session key is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:    deps,
		engine:  gin.New(),
		logger:  logger,
		metrics: opts.Metrics,
		timeout: opts.RequestTimeout,
	}

	store := cookie.NewStore([]byte(opts.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})

	s.engine.Use(gin.Recovery(), s.instrument(), sessions.Sessions(sessionName, store))
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.POST("/login", s.handleLogin)
	api.POST("/logout", s.handleLogout)

	// The domain rejects a zero user id, so these stay outside requireAuth
	// and report "unauthenticated" in their own envelopes.
	api.GET("/characters/active", s.handleGetActive)
	api.POST("/characters/active", s.handleSetActive)
	api.POST("/characters/delete", s.handleDelete)

	authed := api.Group("", requireAuth())
	authed.GET("/characters", s.handleList)
	authed.GET("/characters/:character_id", s.RequireOwnedCharacter(), s.handleCharacter)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves in the background. The returned channel
// carries a serve failure, if any, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", addr).Wrap(err)
	}
	s.listener = listener
	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown web server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
