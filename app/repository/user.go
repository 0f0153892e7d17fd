package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

const userColumns = `id, name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.VerifiedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	user.ID, err = lastInsertID(result)
	return err
}

func (r *UserRepository) FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE canonical_email = ?`
	return r.findOne(ctx, query, canonicalEmail)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			name = ?,
			email = ?,
			canonical_email = ?,
			password_hash = ?,
			role = ?,
			is_active = ?,
			verified_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.VerifiedAt,
		user.UpdatedAt,
		user.ID,
	)
	return translateError(err)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	user := &entity.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CanonicalEmail,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.VerifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
