package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

const internalAPIKeyColumns = `id, service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at`

// InternalAPIKeyRepository stores hashed credentials of services allowed to
// call the internal order API. Access scopes are kept as a JSON array.
type InternalAPIKeyRepository struct {
	db DBTX
}

func NewInternalAPIKeyRepository(db DBTX) *InternalAPIKeyRepository {
	return &InternalAPIKeyRepository{db: db}
}

func (r *InternalAPIKeyRepository) Create(ctx context.Context, key *entity.InternalAPIKey) error {
	access, err := encodeAccess(key.AllowedAccess)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO internal_api_keys (
			service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		key.ServiceName,
		key.KeyHash,
		access,
		key.IsActive,
		key.ExpiresAt,
		key.CreatedAt,
		key.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	key.ID, err = lastInsertID(result)
	return err
}

func (r *InternalAPIKeyRepository) FindActiveByHash(ctx context.Context, keyHash string, now time.Time) (*entity.InternalAPIKey, error) {
	query := `SELECT ` + internalAPIKeyColumns + `
		FROM internal_api_keys
		WHERE key_hash = ? AND is_active = 1 AND expires_at > ?
		ORDER BY id DESC
		LIMIT 1
	`
	key, err := scanInternalAPIKey(r.db.QueryRowContext(ctx, query, keyHash, now).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// FindActiveByServiceName returns the usable keys of a service, newest first.
// During a regeneration grace period a service has more than one.
func (r *InternalAPIKeyRepository) FindActiveByServiceName(ctx context.Context, serviceName string, now time.Time) ([]*entity.InternalAPIKey, error) {
	query := `SELECT ` + internalAPIKeyColumns + `
		FROM internal_api_keys
		WHERE service_name = ? AND is_active = 1 AND expires_at > ?
		ORDER BY id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, serviceName, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*entity.InternalAPIKey, 0)
	for rows.Next() {
		key, err := scanInternalAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (r *InternalAPIKeyRepository) SetAllowedAccess(ctx context.Context, id uint64, allowedAccess []string, updatedAt time.Time) error {
	access, err := encodeAccess(allowedAccess)
	if err != nil {
		return err
	}

	query := `UPDATE internal_api_keys SET allowed_access_json = ?, updated_at = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, access, updatedAt, id)
	return err
}

// DeactivateByServiceName switches off every usable key of a service at once.
func (r *InternalAPIKeyRepository) DeactivateByServiceName(ctx context.Context, serviceName string, now time.Time) (int64, error) {
	query := `
		UPDATE internal_api_keys SET is_active = 0, expires_at = ?, updated_at = ?
		WHERE service_name = ? AND is_active = 1 AND expires_at > ?
	`
	result, err := r.db.ExecContext(ctx, query, now, now, serviceName, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpireByServiceName keeps the usable keys of a service active until
// expiresAt. Keys already expiring earlier are left alone.
func (r *InternalAPIKeyRepository) ExpireByServiceName(ctx context.Context, serviceName string, expiresAt, now time.Time) (int64, error) {
	query := `
		UPDATE internal_api_keys SET expires_at = ?, updated_at = ?
		WHERE service_name = ? AND is_active = 1 AND expires_at > ?
	`
	result, err := r.db.ExecContext(ctx, query, expiresAt, now, serviceName, expiresAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func encodeAccess(access []string) (string, error) {
	if access == nil {
		access = []string{}
	}
	data, err := json.Marshal(access)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func scanInternalAPIKey(scan rowScanner) (*entity.InternalAPIKey, error) {
	key := &entity.InternalAPIKey{}
	var accessJSON string
	if err := scan(
		&key.ID,
		&key.ServiceName,
		&key.KeyHash,
		&accessJSON,
		&key.IsActive,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(accessJSON), &key.AllowedAccess); err != nil {
		return nil, err
	}

	return key, nil
}
