package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinCartQuantity = 1
	MaxCartQuantity = 100
)

type CartItem struct {
	ID        uint64
	UserID    uint64
	ProductID uint64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Product is nil when the referenced product no longer exists.
	Product *ProductSummary
}

type ProductSummary struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
}
