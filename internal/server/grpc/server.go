// Package grpc exposes the auth use cases over gRPC using the hand-declared
// contract in internal/rpc.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/rpc"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/models"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"google.golang.org/grpc"
)

// AuthUseCases is the business layer behind the transport.
type AuthUseCases interface {
	SignUp(ctx context.Context, email, password string) (*tokens.TokenPair, error)
	SignIn(ctx context.Context, email, password string) (*tokens.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*tokens.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// AccessVerifier checks access tokens for protected methods.
type AccessVerifier interface {
	VerifyAccessToken(token string) (auth.Payload, error)
}

type GRPCServer struct {
	address  string
	auth     AuthUseCases
	verifier AccessVerifier
	logger   logging.Logger
}

var _ rpc.AuthServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(address string, l logging.Logger, a AuthUseCases, v AccessVerifier) *GRPCServer {
	return &GRPCServer{
		address:  address,
		auth:     a,
		verifier: v,
		logger:   l.With("module", "grpc_server"),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestInterceptor, s.accessTokenInterceptor))

	rpc.RegisterAuthServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
