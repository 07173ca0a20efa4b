package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps use-case errors to HTTP statuses. Both invalid-token and
// invalid-credentials render the same fixed 401 body.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrInvalidCredentials):
		abortUnauthorized(c)
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.Is(err, common.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error(c.Request.Context(), "request failed", "request_id", c.GetString(requestIDKey), "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
}

func writePair(c *gin.Context, status int, p *tokens.TokenPair) {
	c.JSON(status, tokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "Bearer"})
}

type credentialsCall func(ctx context.Context, email, password string) (*tokens.TokenPair, error)

func (s *Server) withCredentials(c *gin.Context, call credentialsCall, okStatus int) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	pair, err := call(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writePair(c, okStatus, pair)
}

func (s *Server) signUp(c *gin.Context) {
	s.withCredentials(c, s.auth.SignUp, http.StatusCreated)
}

func (s *Server) signIn(c *gin.Context) {
	s.withCredentials(c, s.auth.SignIn, http.StatusOK)
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	pair, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writePair(c, http.StatusOK, pair)
}

func (s *Server) signOut(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	if err := s.auth.SignOut(c.Request.Context(), req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	p, ok := c.MustGet(payloadKey).(auth.Payload)
	if !ok {
		abortUnauthorized(c)
		return
	}

	user, err := s.auth.Me(c.Request.Context(), p.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, meResponse{
		ID:        user.ID,
		Email:     user.Email,
		SessionID: p.SessionID,
		CreatedAt: user.CreatedAt,
	})
}
