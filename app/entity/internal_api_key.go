package entity

import (
	"slices"
	"time"
)

// AccessOrders lets a service read orders and move them between statuses.
const AccessOrders = "orders"

var knownAccess = []string{AccessOrders}

type InternalAPIKey struct {
	ID            uint64
	ServiceName   string
	KeyHash       string
	AllowedAccess []string
	IsActive      bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func HasAccess(allowed []string, scope string) bool {
	return slices.Contains(allowed, scope)
}

func ValidAccess(scope string) bool {
	return slices.Contains(knownAccess, scope)
}
