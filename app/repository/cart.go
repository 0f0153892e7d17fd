package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/shopspring/decimal"
)

type CartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// Create inserts a cart row. A second row for the same (user, product) pair
// fails with ErrDuplicate.
func (r *CartRepository) Create(ctx context.Context, item *entity.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		item.UserID,
		item.ProductID,
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	item.ID, err = lastInsertID(result)
	return err
}

func (r *CartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uint64) (*entity.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE user_id = ? AND product_id = ?
	`
	item := &entity.CartItem{}
	err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *CartRepository) ListByUser(ctx context.Context, userID uint64) ([]*entity.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		       p.name, p.description, p.price, p.image_url
		FROM cart_items c
		LEFT JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.id
	`
	return r.listWithProducts(ctx, query, userID)
}

// ListByUserForUpdate locks the user's cart rows for the lifetime of the
// surrounding transaction.
func (r *CartRepository) ListByUserForUpdate(ctx context.Context, userID uint64) ([]*entity.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		       p.name, p.description, p.price, p.image_url
		FROM cart_items c
		LEFT JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.id
		FOR UPDATE
	`
	return r.listWithProducts(ctx, query, userID)
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, id uint64, quantity int, updatedAt time.Time) error {
	query := `UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, quantity, updatedAt, id)
	return err
}

func (r *CartRepository) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id)
	return err
}

func (r *CartRepository) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *CartRepository) listWithProducts(ctx context.Context, query string, args ...interface{}) ([]*entity.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.CartItem, 0)
	for rows.Next() {
		item := &entity.CartItem{}
		var (
			name        sql.NullString
			description sql.NullString
			price       decimal.NullDecimal
			imageURL    sql.NullString
		)
		if err = rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
			&name,
			&description,
			&price,
			&imageURL,
		); err != nil {
			return nil, err
		}

		if name.Valid {
			item.Product = &entity.ProductSummary{
				Name:        name.String,
				Description: description.String,
				Price:       price.Decimal,
				ImageURL:    imageURL.String,
			}
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
