// Package auth signs and verifies the compact HS256 tokens handed to clients.
//
// Every token carries sub (user id, decimal string), jti (session id), iat,
// exp and a private typ claim telling access and refresh tokens apart.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes the two token flavours.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	// AccessTokenLifetime is exactly 900 seconds.
	AccessTokenLifetime = 15 * time.Minute
	// RefreshTokenLifetime is exactly 604800 seconds.
	RefreshTokenLifetime = 7 * 24 * time.Hour
)

// Lifetime returns the validity window for k.
func (k Kind) Lifetime() time.Duration {
	if k == KindRefresh {
		return RefreshTokenLifetime
	}
	return AccessTokenLifetime
}

// Claims is the signed payload.
type Claims struct {
	jwt.RegisteredClaims
	Type Kind `json:"typ"`
}

// Payload is what a verified token tells the caller.
type Payload struct {
	UserID    int64
	SessionID string
}

// Codec issues and verifies tokens.
type Codec interface {
	Issue(userID int64, sessionID string, kind Kind) (string, error)
	Verify(token string, kind Kind) (Payload, error)
}

// ErrMissingSecret is returned when the codec is built without a signing key.
var ErrMissingSecret = errors.New("signing secret is empty")

// JWTCodec is a Codec over github.com/golang-jwt/jwt/v5 with a single
// process-wide HMAC secret.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a JWTCodec.
type Option func(*JWTCodec)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) Option {
	return func(c *JWTCodec) { c.now = now }
}

func NewJWTCodec(secret []byte, opts ...Option) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	c := &JWTCodec{secret: secret, now: time.Now}
	for _, o := range opts {
		o(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// Issue signs a token of the given kind. exp - iat equals kind.Lifetime()
// to the second.
func (c *JWTCodec) Issue(userID int64, sessionID string, kind Kind) (string, error) {
	if sessionID == "" {
		return "", errors.New("issue token: empty session id")
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", fmt.Errorf("issue token: unknown kind %q", kind)
	}

	now := c.now().Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(kind.Lifetime())),
		},
		Type: kind,
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks signature, expiry, kind and claim shape. Any failure is
// reported as common.ErrInvalidToken without further detail.
func (c *JWTCodec) Verify(tokenString string, kind Kind) (Payload, error) {
	claims := &Claims{}

	token, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return Payload{}, common.ErrInvalidToken
	}

	if claims.Type != kind || claims.ID == "" || claims.IssuedAt == nil {
		return Payload{}, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Payload{}, common.ErrInvalidToken
	}

	return Payload{UserID: userID, SessionID: claims.ID}, nil
}
