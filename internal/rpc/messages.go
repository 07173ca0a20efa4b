package rpc

import "time"

type SignUpRequest struct {
	Email    string `cbor:"email"`
	Password string `cbor:"password"`
}

type SignInRequest struct {
	Email    string `cbor:"email"`
	Password string `cbor:"password"`
}

type RefreshRequest struct {
	RefreshToken string `cbor:"refresh_token"`
}

type SignOutRequest struct {
	RefreshToken string `cbor:"refresh_token"`
}

type SignOutResponse struct{}

// TokenPairResponse answers SignUp, SignIn and Refresh.
type TokenPairResponse struct {
	AccessToken  string `cbor:"access_token"`
	RefreshToken string `cbor:"refresh_token"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	UserID    int64     `cbor:"user_id"`
	Email     string    `cbor:"email"`
	SessionID string    `cbor:"session_id"`
	CreatedAt time.Time `cbor:"created_at"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `cbor:"status"`
}
