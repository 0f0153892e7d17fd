package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	ImageURL    string
	CreatedBy   uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	ProductSortPriceAsc  = "price_asc"
	ProductSortPriceDesc = "price_desc"
	ProductSortName      = "name"
)
