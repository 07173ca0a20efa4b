package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/dmitrijs2005/stockpile/internal/dbx"
)

// PostgresStore keeps session records in the refresh_sessions table.
// Expired rows are invisible to Get and are removed by PurgeExpired.
type PostgresStore struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewPostgresStore constructs a store bound to the given DBTX.
func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Put(ctx context.Context, userID int64, sessionID, secretHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("postgres put: non-positive ttl %s", ttl)
	}
	query := `
		INSERT INTO refresh_sessions (user_id, session_id, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, session_id)
		DO UPDATE SET secret_hash = EXCLUDED.secret_hash, expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID, sessionID, secretHash, s.now().Add(ttl)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID int64, sessionID string) (string, error) {
	query := `
		SELECT secret_hash
		FROM refresh_sessions
		WHERE user_id = $1 AND session_id = $2 AND expires_at > $3
	`
	var hash string
	if err := s.db.QueryRowContext(ctx, query, userID, sessionID, s.now()).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return hash, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID int64, sessionID string) error {
	query := `
		DELETE FROM refresh_sessions
		WHERE user_id = $1 AND session_id = $2
	`
	if _, err := s.db.ExecContext(ctx, query, userID, sessionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// PurgeExpired deletes lapsed rows and reports how many went.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM refresh_sessions
		WHERE expires_at <= $1
	`
	res, err := s.db.ExecContext(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
