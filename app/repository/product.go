package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price, stock, category, image_url, created_by, created_at, updated_at`

// ProductFilter narrows the public catalog listing. Nil bounds and an empty
// category are ignored.
type ProductFilter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	Offset   int
	Limit    int
}

type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, category, image_url, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
		product.ImageURL,
		product.CreatedBy,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	product.ID, err = lastInsertID(result)
	return err
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint64) (*entity.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products WHERE id = ?`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products ORDER BY id LIMIT ? OFFSET ?`
	return r.list(ctx, query, limit, offset)
}

func (r *ProductRepository) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET
			name = ?,
			description = ?,
			price = ?,
			stock = ?,
			category = ?,
			image_url = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
		product.ImageURL,
		product.UpdatedAt,
		product.ID,
	)
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

func (r *ProductRepository) Search(ctx context.Context, filter ProductFilter) ([]*entity.Product, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Category != "" {
		conditions = append(conditions, "LOWER(category) LIKE ?")
		args = append(args, containsPattern(filter.Category))
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + productColumns + ` FROM products`)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	switch filter.SortBy {
	case entity.ProductSortPriceAsc:
		sb.WriteString(" ORDER BY price ASC, id ASC")
	case entity.ProductSortPriceDesc:
		sb.WriteString(" ORDER BY price DESC, id ASC")
	case entity.ProductSortName:
		sb.WriteString(" ORDER BY name ASC, id ASC")
	default:
		sb.WriteString(" ORDER BY id ASC")
	}

	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	return r.list(ctx, sb.String(), args...)
}

func (r *ProductRepository) SearchKeyword(ctx context.Context, keyword string) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE LOWER(name) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY id`
	pattern := containsPattern(keyword)
	return r.list(ctx, query, pattern, pattern)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*entity.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func scanProduct(scan rowScanner) (*entity.Product, error) {
	product := &entity.Product{}
	var description sql.NullString
	if err := scan(
		&product.ID,
		&product.Name,
		&description,
		&product.Price,
		&product.Stock,
		&product.Category,
		&product.ImageURL,
		&product.CreatedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	product.Description = description.String
	return product, nil
}

// containsPattern builds a case-insensitive substring LIKE pattern with the
// wildcard characters of the input escaped.
func containsPattern(value string) string {
	value = strings.ToLower(value)
	value = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	return "%" + value + "%"
}
