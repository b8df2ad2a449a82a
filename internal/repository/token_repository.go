package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens.
var ErrRefreshInvalid = errors.New("invalid refresh token")

// TokenRepo stores refresh token sessions.  Only the SHA-256 hash of a
// token is ever persisted.
type TokenRepo struct{ DB *sql.DB }

// NewTokenRepo returns a TokenRepo backed by db.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const insertRefresh = "INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)"

// Store opens a session for userID that lasts until exp.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx, insertRefresh, userID, hash, exp.UTC())
	return err
}

// Owner returns the user of a live session, or ErrRefreshInvalid.
func (r *TokenRepo) Owner(ctx context.Context, hash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		hash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRefreshInvalid
	}
	return userID, err
}

// Rotate revokes oldHash and stores newHash for the same user in one
// transaction, so a refresh token can be exchanged exactly once.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND user_id = ? AND revoked_at IS NULL",
		oldHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRefreshInvalid
	}
	if _, err := tx.ExecContext(ctx, insertRefresh, userID, newHash, exp.UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Revoke ends one session.  It reports ErrRefreshInvalid when the token
// was unknown or already revoked.
func (r *TokenRepo) Revoke(ctx context.Context, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL",
		hash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRefreshInvalid
	}
	return nil
}

// RevokeAll ends every live session of a user.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL",
		userID)
	return err
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at < ?",
		cutoff.UTC(), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
