package dto

import "github.com/shopspring/decimal"

type InternalAccessResult struct {
	ServiceName   string
	AllowedAccess []string
}

type CheckoutResult struct {
	OrderID     uint64
	TotalAmount decimal.Decimal
	ItemCount   int
}
