package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

type PasswordResetTokenRepository struct {
	db DBTX
}

func NewPasswordResetTokenRepository(db DBTX) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: db}
}

func (r *PasswordResetTokenRepository) Create(ctx context.Context, token *entity.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	token.ID, err = lastInsertID(result)
	return err
}

// FindUnusedForUpdate locks an unused token of the user. Expiry is checked by
// the caller so an expired token can be reported as such.
func (r *PasswordResetTokenRepository) FindUnusedForUpdate(ctx context.Context, userID uint64, token string) (*entity.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, used_at, created_at
		FROM password_reset_tokens
		WHERE user_id = ? AND token = ? AND used = 0
		FOR UPDATE
	`
	t := &entity.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, query, userID, token).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.ExpiresAt,
		&t.Used,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PasswordResetTokenRepository) MarkUsed(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE password_reset_tokens SET used = 1, used_at = ? WHERE id = ?`, at, id)
	return err
}
