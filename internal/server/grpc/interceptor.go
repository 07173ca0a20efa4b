package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/rpc"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	payloadKey   ctxKey = "payload"
	requestIDKey ctxKey = "requestID"
)

// protectedMethods require a valid access token in the access_token metadata.
var protectedMethods = map[string]bool{
	rpc.WhoAmIMethod: true,
}

// PayloadFromContext returns the verified access-token payload set by the
// interceptor on protected methods.
func PayloadFromContext(ctx context.Context) (auth.Payload, bool) {
	p, ok := ctx.Value(payloadKey).(auth.Payload)
	return p, ok
}

// RequestIDFromContext returns the id assigned to the current call.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requestInterceptor tags every call with a request id, echoes it in the
// response header and logs one line when the call completes.
func (s *GRPCServer) requestInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	id := firstMetadata(ctx, common.RequestIDHeaderName)
	if id == "" {
		id = uuid.NewString()
	}
	ctx = context.WithValue(ctx, requestIDKey, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))

	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	log := s.logger.Info
	if code == codes.Internal || code == codes.Unknown {
		log = s.logger.Error
	}
	log(ctx, "request",
		"method", info.FullMethod,
		"request_id", id,
		"code", code.String(),
		"duration", time.Since(start),
	)

	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protectedMethods[info.FullMethod] {

		accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		p, err := s.verifier.VerifyAccessToken(accessToken)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}

		ctx = context.WithValue(ctx, payloadKey, p)
	}

	return handler(ctx, req)
}
