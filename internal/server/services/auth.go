// Package services contains server-side business logic. AuthService drives
// sign-up, sign-in, token refresh and sign-out on top of the token service,
// the password hasher and the users repository.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/dbx"
	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/metrics"
	"github.com/dmitrijs2005/stockpile/internal/server/models"
	"github.com/dmitrijs2005/stockpile/internal/server/passwords"
	"github.com/dmitrijs2005/stockpile/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = passwords.MaxPlaintextLen
)

// TokenService is the subset of tokens.Service the use cases need.
type TokenService interface {
	GenerateTokenPair(ctx context.Context, userID int64, sessionID string) (*tokens.TokenPair, error)
	VerifyRefreshToken(ctx context.Context, token string) (auth.Payload, error)
	InvalidateRefreshToken(ctx context.Context, userID int64, sessionID string) error
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenService
	hasher      passwords.Hasher
	metrics     *metrics.Auth
	logger      logging.Logger

	// dummyHash is verified against when the email is unknown, so both
	// sign-in failure paths pay one bcrypt comparison.
	dummyHash string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, ts TokenService, h passwords.Hasher,
	mt *metrics.Auth, logger logging.Logger) (*AuthService, error) {

	dummy, err := h.Hash("stockpile-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      ts,
		hasher:      h,
		metrics:     mt,
		logger:      logger.With("module", "auth"),
		dummyHash:   dummy,
	}, nil
}

func validateCredentials(email, password string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrInvalidArgument)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: malformed email", common.ErrInvalidArgument)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidArgument, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrInvalidArgument, MaxPasswordLength)
	}
	return nil
}

// SignUp creates an account and opens its first session.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (pair *tokens.TokenPair, err error) {
	defer func() { s.metrics.Observe(metrics.OpSignUp, err) }()

	email = common.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	var user *models.User

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByEmail(ctx, email)
		if err == nil {
			return common.ErrorAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user, err = repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return err
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	return s.tokens.GenerateTokenPair(ctx, user.ID, "")
}

// SignIn checks credentials and opens a new session. An unknown email and a
// wrong password both yield common.ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (pair *tokens.TokenPair, err error) {
	defer func() { s.metrics.Observe(metrics.OpSignIn, err) }()

	email = common.NormalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.tokens.GenerateTokenPair(ctx, user.ID, "")
}

// Refresh rotates the pair of the session named by refreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair *tokens.TokenPair, err error) {
	defer func() { s.metrics.Observe(metrics.OpRefresh, err) }()

	p, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return s.tokens.GenerateTokenPair(ctx, p.UserID, p.SessionID)
}

// SignOut revokes the session named by refreshToken.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) (err error) {
	defer func() { s.metrics.Observe(metrics.OpSignOut, err) }()

	p, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.tokens.InvalidateRefreshToken(ctx, p.UserID, p.SessionID); err != nil {
		return err
	}

	s.logger.Info(ctx, "session closed", "user_id", p.UserID, "session_id", p.SessionID)
	return nil
}

// Me loads the profile of an authenticated caller. A user deleted after
// its access token was issued is reported as common.ErrInvalidToken.
func (s *AuthService) Me(ctx context.Context, userID int64) (user *models.User, err error) {
	defer func() { s.metrics.Observe(metrics.OpMe, err) }()

	user, err = s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}
