package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

type UserTokenRepository struct {
	db DBTX
}

func NewUserTokenRepository(db DBTX) *UserTokenRepository {
	return &UserTokenRepository{db: db}
}

func (r *UserTokenRepository) Create(ctx context.Context, token *entity.UserToken) error {
	query := `
		INSERT INTO user_tokens (user_id, access_key, refresh_key, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.AccessKey,
		token.RefreshKey,
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return translateError(err)
	}

	token.ID, err = lastInsertID(result)
	return err
}

// FindActiveForRefresh locks the session row matching all three refresh
// claims. It must run inside a transaction.
func (r *UserTokenRepository) FindActiveForRefresh(ctx context.Context, refreshKey, accessKey string, userID uint64, now time.Time) (*entity.UserToken, error) {
	query := `
		SELECT id, user_id, access_key, refresh_key, created_at, expires_at
		FROM user_tokens
		WHERE refresh_key = ? AND access_key = ? AND user_id = ? AND expires_at > ?
		FOR UPDATE
	`
	return r.findOne(ctx, query, refreshKey, accessKey, userID, now)
}

func (r *UserTokenRepository) FindActiveForAccess(ctx context.Context, id uint64, accessKey string, userID uint64, now time.Time) (*entity.UserToken, error) {
	query := `
		SELECT id, user_id, access_key, refresh_key, created_at, expires_at
		FROM user_tokens
		WHERE id = ? AND access_key = ? AND user_id = ? AND expires_at > ?
	`
	return r.findOne(ctx, query, id, accessKey, userID, now)
}

func (r *UserTokenRepository) Expire(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_tokens SET expires_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *UserTokenRepository) DeleteByUserID(ctx context.Context, userID uint64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserTokenRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.UserToken, error) {
	token := &entity.UserToken{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.AccessKey,
		&token.RefreshKey,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}
