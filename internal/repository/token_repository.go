package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores staff refresh tokens by their SHA-256 hash.  A token is
// usable while revoked_at is NULL and expires_at lies in the future.
// Rotation relies on RevokeByHash reporting whether this caller was the one
// that revoked the row.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// StoreRefresh records a freshly issued refresh token for the staff user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, exp.UTC(), r.now())
	return err
}

// ValidateRefresh returns the owner of a usable token.  Unknown, revoked and
// expired tokens all yield sql.ErrNoRows.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		owner     uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	const q = `SELECT user_id, expires_at, revoked_at FROM refresh_tokens
		WHERE token_hash = ? LIMIT 1`
	if err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(&owner, &expiresAt, &revokedAt); err != nil {
		return 0, err
	}
	if revokedAt.Valid || !r.now().Before(expiresAt.UTC()) {
		return 0, sql.ErrNoRows
	}
	return owner, nil
}

// RevokeByHash revokes a usable token and returns the number of rows
// changed.  Of several callers racing on one token exactly one sees 1.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) (int64, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ?
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		now, tokenHash, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForUser revokes every outstanding token of the staff user, used
// on logout-everywhere and when an account is disabled.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		r.now(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
