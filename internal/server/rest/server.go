// Package rest serves the auth use cases as JSON over HTTP with gin.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/models"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// AuthUseCases is the business layer behind the transport.
type AuthUseCases interface {
	SignUp(ctx context.Context, email, password string) (*tokens.TokenPair, error)
	SignIn(ctx context.Context, email, password string) (*tokens.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*tokens.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// AccessVerifier checks bearer tokens on protected routes.
type AccessVerifier interface {
	VerifyAccessToken(token string) (auth.Payload, error)
}

type Server struct {
	address  string
	auth     AuthUseCases
	verifier AccessVerifier
	metrics  http.Handler
	logger   logging.Logger
	router   *gin.Engine
}

// NewServer builds the router. metricsHandler may be nil, in which case
// /metrics is not mounted.
func NewServer(address string, l logging.Logger, a AuthUseCases, v AccessVerifier, metricsHandler http.Handler) *Server {
	s := &Server{
		address:  address,
		auth:     a,
		verifier: v,
		metrics:  metricsHandler,
		logger:   l.With("module", "http_server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := r.Group("/api/v1/auth")
	v1.POST("/signup", s.signUp)
	v1.POST("/signin", s.signIn)
	v1.POST("/refresh", s.refresh)
	v1.POST("/signout", s.signOut)
	v1.GET("/me", s.bearerAuth(), s.me)

	return r
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
