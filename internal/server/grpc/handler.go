package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/rpc"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps use-case errors to gRPC statuses. Infrastructure details
// stay in the log.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "request_id", RequestIDFromContext(ctx), "error", err.Error())
		return status.Error(codes.Internal, "internal error")
	}
}

func toPair(p *tokens.TokenPair) *rpc.TokenPairResponse {
	return &rpc.TokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func (s *GRPCServer) SignUp(ctx context.Context, req *rpc.SignUpRequest) (*rpc.TokenPairResponse, error) {
	pair, err := s.auth.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toPair(pair), nil
}

func (s *GRPCServer) SignIn(ctx context.Context, req *rpc.SignInRequest) (*rpc.TokenPairResponse, error) {
	pair, err := s.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toPair(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *rpc.RefreshRequest) (*rpc.TokenPairResponse, error) {
	pair, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toPair(pair), nil
}

func (s *GRPCServer) SignOut(ctx context.Context, req *rpc.SignOutRequest) (*rpc.SignOutResponse, error) {
	if err := s.auth.SignOut(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SignOutResponse{}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *rpc.WhoAmIRequest) (*rpc.WhoAmIResponse, error) {
	p, ok := PayloadFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	user, err := s.auth.Me(ctx, p.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.WhoAmIResponse{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: p.SessionID,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}
