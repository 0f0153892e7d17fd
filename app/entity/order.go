package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	ID          uint64
	UserID      uint64
	TotalAmount decimal.Decimal
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []*OrderItem
}

// OrderItem keeps a copy of the product fields at purchase time. ProductID
// becomes NULL once the product is deleted.
type OrderItem struct {
	ID                 uint64
	OrderID            uint64
	ProductID          sql.NullInt64
	Quantity           int
	PriceAtPurchase    decimal.Decimal
	ProductName        string
	ProductDescription string
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}
