// Package sessions holds the server-side revocation anchors for refresh
// tokens: one hashed secret per (user, session), expiring with the token.
package sessions

import (
	"context"
	"fmt"
	"time"
)

// KeyPrefix namespaces session records in shared key-value stores.
const KeyPrefix = "refresh_token"

// Store records the current refresh secret hash of each session.
//
// Get returns common.ErrorNotFound for an absent or expired record. Delete
// of an absent record is not an error. Put overwrites the value and resets
// the expiry to ttl from now.
type Store interface {
	Put(ctx context.Context, userID int64, sessionID, secretHash string, ttl time.Duration) error
	Get(ctx context.Context, userID int64, sessionID string) (string, error)
	Delete(ctx context.Context, userID int64, sessionID string) error
}

// Key renders the record key, e.g. "refresh_token:7:2D5uTtIdMlwrK5IuTyTSkdFWdSG".
func Key(userID int64, sessionID string) string {
	return fmt.Sprintf("%s:%d:%s", KeyPrefix, userID, sessionID)
}
