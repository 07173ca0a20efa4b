// Package tokens mints access/refresh pairs and checks them against their
// trust sources: the signature alone for access tokens, the signature plus
// the session store for refresh tokens.
package tokens

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/passwords"
	"github.com/dmitrijs2005/stockpile/internal/server/sessions"
	"github.com/segmentio/ksuid"
	"github.com/zeebo/blake3"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service composes a token codec, a hasher and a session store.
type Service struct {
	codec        auth.Codec
	hasher       passwords.Hasher
	store        sessions.Store
	logger       logging.Logger
	newSessionID func() (string, error)
}

func NewService(codec auth.Codec, hasher passwords.Hasher, store sessions.Store, logger logging.Logger) *Service {
	return &Service{
		codec:        codec,
		hasher:       hasher,
		store:        store,
		logger:       logger.With("module", "tokens"),
		newSessionID: newKSUID,
	}
}

func newKSUID() (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GenerateTokenPair signs an access and a refresh token for userID bound to
// sessionID, starting a new session when sessionID is empty, and records the
// refresh secret hash in the store with the refresh lifetime as TTL.
func (s *Service) GenerateTokenPair(ctx context.Context, userID int64, sessionID string) (*TokenPair, error) {
	if sessionID == "" {
		id, err := s.newSessionID()
		if err != nil {
			return nil, fmt.Errorf("new session id: %w", err)
		}
		sessionID = id
	}

	access, err := s.codec.Issue(userID, sessionID, auth.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(userID, sessionID, auth.KindRefresh)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(digest(refresh))
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}

	if err := s.store.Put(ctx, userID, sessionID, hash, auth.RefreshTokenLifetime); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.logger.Debug(ctx, "token pair issued", "user_id", userID, "session_id", sessionID)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken is stateless; it only checks signature, expiry and claims.
func (s *Service) VerifyAccessToken(token string) (auth.Payload, error) {
	return s.codec.Verify(token, auth.KindAccess)
}

// VerifyRefreshToken checks the token and then requires the session store to
// hold a hash matching it. Store outages surface as infrastructure errors,
// everything else as common.ErrInvalidToken.
func (s *Service) VerifyRefreshToken(ctx context.Context, token string) (auth.Payload, error) {
	p, err := s.codec.Verify(token, auth.KindRefresh)
	if err != nil {
		return auth.Payload{}, err
	}

	stored, err := s.store.Get(ctx, p.UserID, p.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Payload{}, common.ErrInvalidToken
		}
		return auth.Payload{}, fmt.Errorf("load session: %w", err)
	}

	if !s.hasher.Verify(digest(token), stored) {
		return auth.Payload{}, common.ErrInvalidToken
	}

	return p, nil
}

// InvalidateRefreshToken drops the session record. It does not check any token.
func (s *Service) InvalidateRefreshToken(ctx context.Context, userID int64, sessionID string) error {
	if err := s.store.Delete(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Debug(ctx, "session revoked", "user_id", userID, "session_id", sessionID)
	return nil
}

// digest condenses a token to 64 hex characters. bcrypt reads at most 72
// bytes, and the leading 72 bytes of two rotations of one session coincide.
func digest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
