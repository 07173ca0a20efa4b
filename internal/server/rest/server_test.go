package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/metrics"
	"github.com/dmitrijs2005/stockpile/internal/server/models"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	err       error
	user      *models.User
	gotEmail  string
	gotToken  string
	signedOut bool
}

func (f *fakeAuth) pair() (*tokens.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &tokens.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*tokens.TokenPair, error) {
	f.gotEmail = email
	return f.pair()
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*tokens.TokenPair, error) {
	f.gotEmail = email
	return f.pair()
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*tokens.TokenPair, error) {
	f.gotToken = token
	return f.pair()
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.gotToken = token
	if f.err == nil {
		f.signedOut = true
	}
	return f.err
}

func (f *fakeAuth) Me(context.Context, int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyAccessToken(token string) (auth.Payload, error) {
	if token != "good" {
		return auth.Payload{}, common.ErrInvalidToken
	}
	return auth.Payload{UserID: 7, SessionID: "sess"}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newServer(a AuthUseCases) *Server {
	return NewServer(":0", logging.Nop(), a, fakeVerifier{}, metrics.NewAuth().Handler())
}

const goodCreds = `{"email":"alice@example.com","password":"correct horse"}`

func TestSignUp_Created(t *testing.T) {
	fa := &fakeAuth{}
	rec := do(t, newServer(fa).Handler(), http.MethodPost, "/api/v1/auth/signup", goodCreds, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp tokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tokenPairResponse{AccessToken: "acc", RefreshToken: "ref", TokenType: "Bearer"}, resp)
	assert.Equal(t, "alice@example.com", fa.gotEmail)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSignIn_OK(t *testing.T) {
	rec := do(t, newServer(&fakeAuth{}).Handler(), http.MethodPost, "/api/v1/auth/signin", goodCreds,
		map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestCredentials_Validation(t *testing.T) {
	bodies := []string{
		``,
		`{}`,
		`{"email":"nope","password":"correct horse"}`,
		`{"email":"alice@example.com","password":"short"}`,
		`{"email":"alice@example.com","password":"` + strings.Repeat("p", 73) + `"}`,
	}
	for _, b := range bodies {
		rec := do(t, newServer(&fakeAuth{}).Handler(), http.MethodPost, "/api/v1/auth/signup", b, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, b)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"credentials", common.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"token", common.ErrInvalidToken, http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"conflict", common.ErrorAlreadyExists, http.StatusConflict, `{"error":"already exists"}`},
		{"infra", errors.New("pq: connection reset"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newServer(&fakeAuth{err: tt.err}).Handler(), http.MethodPost, "/api/v1/auth/signin", goodCreds, nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestRefresh(t *testing.T) {
	fa := &fakeAuth{}
	h := newServer(fa).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"r1"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", fa.gotToken)

	rec = do(t, h, http.MethodPost, "/api/v1/auth/refresh", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignOut(t *testing.T) {
	fa := &fakeAuth{}
	rec := do(t, newServer(fa).Handler(), http.MethodPost, "/api/v1/auth/signout", `{"refresh_token":"r1"}`, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, fa.signedOut)

	rec = do(t, newServer(&fakeAuth{err: common.ErrInvalidToken}).Handler(), http.MethodPost, "/api/v1/auth/signout", `{"refresh_token":"r1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	h := newServer(&fakeAuth{user: &models.User{ID: 7, Email: "alice@example.com", CreatedAt: created}}).Handler()

	for _, hdr := range []map[string]string{
		nil,
		{"Authorization": "good"},
		{"Authorization": "Bearer "},
		{"Authorization": "Bearer bad"},
	} {
		rec := do(t, h, http.MethodGet, "/api/v1/auth/me", "", hdr)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/api/v1/auth/me", "", map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "sess", resp.SessionID)
	assert.True(t, created.Equal(resp.CreatedAt))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(&fakeAuth{}).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", logging.Nop(), &fakeAuth{}, fakeVerifier{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
