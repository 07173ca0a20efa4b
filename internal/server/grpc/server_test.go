package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/rpc"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/models"
	"github.com/dmitrijs2005/stockpile/internal/server/passwords"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeAuth struct {
	err     error
	user    *models.User
	gotMeID int64
}

func (f *fakeAuth) pair() (*tokens.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &tokens.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*tokens.TokenPair, error) {
	return f.pair()
}
func (f *fakeAuth) SignIn(context.Context, string, string) (*tokens.TokenPair, error) {
	return f.pair()
}
func (f *fakeAuth) Refresh(context.Context, string) (*tokens.TokenPair, error) { return f.pair() }
func (f *fakeAuth) SignOut(context.Context, string) error                      { return f.err }
func (f *fakeAuth) Me(_ context.Context, id int64) (*models.User, error) {
	f.gotMeID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func startBufServer(t *testing.T, a AuthUseCases) rpc.AuthServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logging.Nop(), a,
		fakeVerifier{want: "good", out: auth.Payload{UserID: 7, SessionID: "sess"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	return rpc.NewAuthServiceClient(conn)
}

func TestServer_SignInRoundTrip(t *testing.T) {
	c := startBufServer(t, &fakeAuth{})

	var header metadata.MD
	resp, err := c.SignIn(context.Background(), &rpc.SignInRequest{Email: "a@b.c", Password: "pw"}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, "acc", resp.AccessToken)
	assert.Equal(t, "ref", resp.RefreshToken)
	assert.NotEmpty(t, header.Get(common.RequestIDHeaderName))
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"invalid token", common.ErrInvalidToken, codes.Unauthenticated, "unauthorized"},
		{"invalid credentials", common.ErrInvalidCredentials, codes.Unauthenticated, "unauthorized"},
		{"conflict", common.ErrorAlreadyExists, codes.AlreadyExists, "already exists"},
		{"infra", errors.New("redis: connection refused"), codes.Internal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startBufServer(t, &fakeAuth{err: tt.err})
			_, err := c.Refresh(context.Background(), &rpc.RefreshRequest{RefreshToken: "x"})
			st := status.Convert(err)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
}

func TestServer_InvalidArgument(t *testing.T) {
	c := startBufServer(t, &fakeAuth{err: errors.Join(common.ErrInvalidArgument, errors.New("malformed email"))})
	_, err := c.SignUp(context.Background(), &rpc.SignUpRequest{Email: "x", Password: "y"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_SignOut(t *testing.T) {
	c := startBufServer(t, &fakeAuth{})
	_, err := c.SignOut(context.Background(), &rpc.SignOutRequest{RefreshToken: "r"})
	assert.NoError(t, err)
}

func TestServer_WhoAmI(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	fa := &fakeAuth{user: &models.User{ID: 7, Email: "alice@example.com", CreatedAt: created}}
	c := startBufServer(t, fa)

	_, err := c.WhoAmI(context.Background(), &rpc.WhoAmIRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "good")
	resp, err := c.WhoAmI(ctx, &rpc.WhoAmIRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), fa.gotMeID)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, "sess", resp.SessionID)
	assert.True(t, created.Equal(resp.CreatedAt))
}

func TestServer_Ping(t *testing.T) {
	c := startBufServer(t, &fakeAuth{})
	resp, err := c.Ping(context.Background(), &rpc.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop(), &fakeAuth{}, fakeVerifier{})
	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}

// hashedAuth checks SignIn passwords against one stored bcrypt hash.
type hashedAuth struct {
	fakeAuth
	hasher *passwords.BcryptHasher
	hash   string
}

func (h *hashedAuth) SignIn(_ context.Context, _ string, password string) (*tokens.TokenPair, error) {
	if !h.hasher.Verify(password, h.hash) {
		return nil, common.ErrInvalidCredentials
	}
	return h.pair()
}

func TestServer_SignInRejectsOverlongPassword(t *testing.T) {
	hasher, err := passwords.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	password := strings.Repeat("p", passwords.MaxPlaintextLen)
	hash, err := hasher.Hash(password)
	require.NoError(t, err)

	c := startBufServer(t, &hashedAuth{hasher: hasher, hash: hash})
	ctx := context.Background()

	_, err = c.SignIn(ctx, &rpc.SignInRequest{Email: "a@b.c", Password: password})
	require.NoError(t, err)

	_, err = c.SignIn(ctx, &rpc.SignInRequest{Email: "a@b.c", Password: password + "suffix"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
