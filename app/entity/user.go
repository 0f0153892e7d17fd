package entity

import (
	"database/sql"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             uint64
	Name           string
	Email          string
	CanonicalEmail string
	PasswordHash   string
	Role           string
	IsActive       bool
	VerifiedAt     sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *User) IsVerified() bool {
	return u.VerifiedAt.Valid
}

// UserToken is a session row. Both keys are embedded in the issued token
// pair and must match for a refresh to succeed.
type UserToken struct {
	ID         uint64
	UserID     uint64
	AccessKey  string
	RefreshKey string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type PasswordResetToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	Used      bool
	UsedAt    sql.NullTime
	CreatedAt time.Time
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
