package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

const (
	insertUserQuery           = `(?s)INSERT INTO users \(name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	updateUserQuery           = `(?s)UPDATE users SET\s+name = \?,\s+email = \?,\s+canonical_email = \?,\s+password_hash = \?,\s+role = \?,\s+is_active = \?,\s+verified_at = \?,\s+updated_at = \?\s+WHERE id = \?`
	findByCanonicalEmailQuery = `(?s)SELECT id, name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at\s+FROM users WHERE canonical_email = \?`
	findUserByIDQuery         = `(?s)SELECT id, name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at\s+FROM users WHERE id = \?`
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"canonical_email",
	"password_hash",
	"role",
	"is_active",
	"verified_at",
	"created_at",
	"updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestUserRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewUserRepository(db)
	now := time.Now().UTC()
	user := &entity.User{
		Name:           "Jane",
		Email:          "Jane.Doe@example.com",
		CanonicalEmail: "jane.doe@example.com",
		PasswordHash:   "hash",
		Role:           entity.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectExec(insertUserQuery).
		WithArgs(
			user.Name,
			user.Email,
			user.CanonicalEmail,
			user.PasswordHash,
			user.Role,
			false,
			nil,
			user.CreatedAt,
			user.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected ID 1, got %d", user.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewUserRepository(db)

	mock.ExpectExec(insertUserQuery).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'janedoe@example.com' for key 'users.canonical_email'"})

	err := repo.Create(context.Background(), &entity.User{Email: "jane@example.com", Role: entity.RoleUser})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_FindByCanonicalEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane.doe@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			uint64(1),
			"Jane",
			"Jane.Doe@example.com",
			"jane.doe@example.com",
			"hash",
			entity.RoleAdmin,
			true,
			now,
			now,
			now,
		))

	user, err := repo.FindByCanonicalEmail(context.Background(), "jane.doe@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if user == nil || user.ID != 1 {
		t.Fatalf("expected user ID 1, got %+v", user)
	}
	if user.Role != entity.RoleAdmin || !user.IsActive || !user.IsVerified() {
		t.Fatalf("unexpected user state: %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewUserRepository(db)

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.FindByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewUserRepository(db)
	now := time.Now().UTC()
	user := &entity.User{
		ID:             1,
		Name:           "Jane",
		Email:          "jane@example.com",
		CanonicalEmail: "jane@example.com",
		PasswordHash:   "hash",
		Role:           entity.RoleUser,
		IsActive:       true,
		VerifiedAt:     sql.NullTime{Time: now, Valid: true},
		UpdatedAt:      now,
	}

	mock.ExpectExec(updateUserQuery).
		WithArgs(
			user.Name,
			user.Email,
			user.CanonicalEmail,
			user.PasswordHash,
			user.Role,
			true,
			now,
			now,
			user.ID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
