package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		order.UserID,
		order.TotalAmount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.ID, err = lastInsertID(result)
	return err
}

func (r *OrderRepository) CreateItem(ctx context.Context, item *entity.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase, product_name, product_description)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.PriceAtPurchase,
		item.ProductName,
		item.ProductDescription,
	)
	if err != nil {
		return err
	}

	item.ID, err = lastInsertID(result)
	return err
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uint64) ([]*entity.Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) FindByIDForUser(ctx context.Context, id, userID uint64) (*entity.Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE id = ? AND user_id = ?
	`
	return r.findOne(ctx, query, id, userID)
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint64) (*entity.Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

func (r *OrderRepository) ListItems(ctx context.Context, orderID uint64) ([]*entity.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price_at_purchase, product_name, product_description
		FROM order_items WHERE order_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.OrderItem, 0)
	for rows.Next() {
		item := &entity.OrderItem{}
		var description sql.NullString
		if err = rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.PriceAtPurchase,
			&item.ProductName,
			&description,
		); err != nil {
			return nil, err
		}
		item.ProductDescription = description.String
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateStatus changes the only mutable column of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint64, status string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, status, updatedAt, id)
	return err
}

func (r *OrderRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(scan rowScanner) (*entity.Order, error) {
	order := &entity.Order{}
	if err := scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return order, nil
}
