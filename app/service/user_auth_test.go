package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	testNow = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

	userColumns = []string{
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
	sessionColumns = []string{
		"id",
		"user_id",
		"access_key",
		"refresh_key",
		"created_at",
		"expires_at",
	}
	resetTokenColumns = []string{
		"id",
		"user_id",
		"token",
		"expires_at",
		"used",
		"used_at",
		"created_at",
	}
	internalAPIKeyColumns = []string{
		"id",
		"service_name",
		"key_hash",
		"allowed_access_json",
		"is_active",
		"expires_at",
		"created_at",
		"updated_at",
	}
)

const (
	findByCanonicalEmailQuery = `(?s)SELECT id, name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at\s+FROM users WHERE canonical_email = \?`
	findByIDQuery             = `(?s)SELECT id, name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at\s+FROM users WHERE id = \?`
	insertUserQuery           = `(?s)INSERT INTO users \(name, email, canonical_email, password_hash, role, is_active, verified_at, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	updateUserQuery           = `(?s)UPDATE users SET\s+name = \?,\s+email = \?,\s+canonical_email = \?,\s+password_hash = \?,\s+role = \?,\s+is_active = \?,\s+verified_at = \?,\s+updated_at = \?\s+WHERE id = \?`
	insertSessionQuery        = `(?s)INSERT INTO user_tokens \(user_id, access_key, refresh_key, created_at, expires_at\)\s+VALUES \(\?, \?, \?, \?, \?\)`
	findSessionForRefresh     = `(?s)SELECT id, user_id, access_key, refresh_key, created_at, expires_at\s+FROM user_tokens\s+WHERE refresh_key = \? AND access_key = \? AND user_id = \? AND expires_at > \?\s+FOR UPDATE`
	findSessionForAccess      = `(?s)SELECT id, user_id, access_key, refresh_key, created_at, expires_at\s+FROM user_tokens\s+WHERE id = \? AND access_key = \? AND user_id = \? AND expires_at > \?`
	expireSessionQuery        = `UPDATE user_tokens SET expires_at = \? WHERE id = \?`
	deleteSessionsQuery       = `DELETE FROM user_tokens WHERE user_id = \?`
	insertResetTokenQuery     = `(?s)INSERT INTO password_reset_tokens \(user_id, token, expires_at, used, created_at\)\s+VALUES \(\?, \?, \?, \?, \?\)`
	findResetTokenForUpdate   = `(?s)SELECT id, user_id, token, expires_at, used, used_at, created_at\s+FROM password_reset_tokens\s+WHERE user_id = \? AND token = \? AND used = 0\s+FOR UPDATE`
	markResetTokenUsedQuery   = `UPDATE password_reset_tokens SET used = 1, used_at = \? WHERE id = \?`
	findInternalByHashQuery   = `(?s)SELECT id, service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at\s+FROM internal_api_keys\s+WHERE key_hash = \? AND is_active = 1 AND expires_at > \?\s+ORDER BY id DESC\s+LIMIT 1`
	findInternalByServiceName = `(?s)SELECT id, service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at\s+FROM internal_api_keys\s+WHERE service_name = \? AND is_active = 1 AND expires_at > \?\s+ORDER BY id DESC`
	insertInternalAPIKeyQuery = `(?s)INSERT INTO internal_api_keys \(\s+service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at\s+\) VALUES \(\?, \?, \?, \?, \?, \?, \?\)`
	setInternalAccessQuery    = `UPDATE internal_api_keys SET allowed_access_json = \?, updated_at = \? WHERE id = \?`
	deactivateInternalKeys    = `(?s)UPDATE internal_api_keys SET is_active = 0, expires_at = \?, updated_at = \?\s+WHERE service_name = \? AND is_active = 1 AND expires_at > \?`
	expireInternalKeys        = `(?s)UPDATE internal_api_keys SET expires_at = \?, updated_at = \?\s+WHERE service_name = \? AND is_active = 1 AND expires_at > \?`
)

type sentMail struct {
	kind  string
	user  *entity.User
	link  string
	order *entity.Order
}

type recordingNotifier struct {
	sent []sentMail
	err  error
}

func (n *recordingNotifier) SendVerification(_ context.Context, user *entity.User, link string) error {
	n.sent = append(n.sent, sentMail{kind: "verification", user: user, link: link})
	return n.err
}

func (n *recordingNotifier) SendWelcome(_ context.Context, user *entity.User) error {
	n.sent = append(n.sent, sentMail{kind: "welcome", user: user})
	return n.err
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, user *entity.User, link string) error {
	n.sent = append(n.sent, sentMail{kind: "password_reset", user: user, link: link})
	return n.err
}

func (n *recordingNotifier) SendOrderConfirmation(_ context.Context, user *entity.User, order *entity.Order) error {
	n.sent = append(n.sent, sentMail{kind: "order_confirmation", user: user, order: order})
	return n.err
}

type storedImage struct {
	key         string
	contentType string
	body        string
}

type memoryImageStore struct {
	stored []storedImage
}

func (s *memoryImageStore) Put(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.stored = append(s.stored, storedImage{key: key, contentType: contentType, body: string(data)})
	return "https://cdn.example.com/" + key, nil
}

type testServices struct {
	auth     service.UserAuthService
	internal service.InternalAuthService
	catalog  service.CatalogService
	cart     service.CartService
	checkout service.CheckoutService
	orders   service.OrderService
	notifier *recordingNotifier
	images   *memoryImageStore
	cfg      *config.Config
}

func newServiceWithMock(t *testing.T) (*testServices, sqlmock.Sqlmock, func()) {
	t.Helper()

	return newServiceWithMockAndConfig(t, func(*config.Config) {})
}

func newServiceWithMockAndConfig(t *testing.T, mutate func(cfg *config.Config)) (*testServices, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	cfg := &config.Config{
		App: config.AppConfig{
			Name:         "Shop",
			FrontendHost: "http://shop.test",
		},
		JWT: config.JWTConfig{
			Secret:          "access-secret",
			RefreshSecret:   "refresh-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Tokens: config.TokenConfig{
			ResetTTL: 15 * time.Minute,
		},
		Password: config.PasswordConfig{
			Policy: config.PasswordPolicy{MinLength: 1},
		},
	}
	mutate(cfg)

	opts := []service.Option{
		service.WithAsyncRunner(func(task func()) { task() }),
		service.WithClock(func() time.Time { return testNow }),
	}

	notifier := &recordingNotifier{}
	images := &memoryImageStore{}
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)

	svc := &testServices{
		auth: service.NewUserAuthService(
			db,
			userRepo,
			repository.NewUserTokenRepository(db),
			repository.NewPasswordResetTokenRepository(db),
			notifier,
			cfg,
			opts...,
		),
		internal: service.NewInternalAuthService(repository.NewInternalAPIKeyRepository(db), opts...),
		catalog:  service.NewCatalogService(productRepo, images, opts...),
		cart:     service.NewCartService(repository.NewCartRepository(db), productRepo, opts...),
		checkout: service.NewCheckoutService(db, userRepo, notifier, opts...),
		orders:   service.NewOrderService(repository.NewOrderRepository(db), opts...),
		notifier: notifier,
		images:   images,
		cfg:      cfg,
	}

	return svc, mock, func() { _ = db.Close() }
}

func activeUserRow(t *testing.T, id uint64, email, password string) *sqlmock.Rows {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	return sqlmock.NewRows(userColumns).AddRow(
		id,
		"Jane Doe",
		email,
		service.CanonicalizeEmail(email),
		string(hash),
		entity.RoleUser,
		true,
		testNow.Add(-time.Hour),
		testNow.Add(-2*time.Hour),
		testNow.Add(-time.Hour),
	)
}

func hashInternalAPIKeyForTest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func linkQuery(t *testing.T, link string) url.Values {
	t.Helper()

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid link %q: %v", link, err)
	}
	return u.Query()
}

func login(t *testing.T, svc *testServices, mock sqlmock.Sqlmock, sessionID int64) *types.TokenResponse {
	t.Helper()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))
	mock.ExpectExec(insertSessionQuery).
		WithArgs(uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), testNow, testNow.Add(24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(sessionID, 1))

	res, err := svc.auth.Login(context.Background(), &types.LoginRequest{
		Username: "jane@example.com",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return res
}

func TestUserAuthService_Register_CreatesInactiveUserAndSendsVerification(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "Jane.Doe+shop@gmail.com"
	canonical := service.CanonicalizeEmail(email)

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs(canonical).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectExec(insertUserQuery).
		WithArgs("Jane", email, canonical, sqlmock.AnyArg(), entity.RoleUser, false, nil, testNow, testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	res, err := svc.auth.Register(context.Background(), &types.RegisterRequest{
		Name:     "Jane",
		Email:    email,
		Password: "password",
		Role:     entity.RoleUser,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if res.ID != 1 || res.IsActive {
		t.Fatalf("expected inactive user 1, got %+v", res)
	}

	if len(svc.notifier.sent) != 1 || svc.notifier.sent[0].kind != "verification" {
		t.Fatalf("expected one verification email, got %+v", svc.notifier.sent)
	}
	link := svc.notifier.sent[0].link
	if !strings.HasPrefix(link, "http://shop.test/auth/account-verify?") {
		t.Fatalf("unexpected verification link %q", link)
	}
	query := linkQuery(t, link)
	if query.Get("email") != email || query.Get("token") == "" {
		t.Fatalf("expected token and email in link, got %q", link)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))

	_, err := svc.auth.Register(context.Background(), &types.RegisterRequest{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "password",
		Role:     entity.RoleUser,
	})
	if !errors.Is(err, service.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if len(svc.notifier.sent) != 0 {
		t.Fatalf("expected no email, got %+v", svc.notifier.sent)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Register_DomainNotAllowed(t *testing.T) {
	svc, _, cleanup := newServiceWithMockAndConfig(t, func(cfg *config.Config) {
		cfg.App.AllowedEmailDomains = []string{"example.com"}
	})
	defer cleanup()

	_, err := svc.auth.Register(context.Background(), &types.RegisterRequest{
		Name:     "Jane",
		Email:    "jane@other.org",
		Password: "password",
		Role:     entity.RoleUser,
	})
	if !errors.Is(err, service.ErrEmailDomainNotAllowed) {
		t.Fatalf("expected ErrEmailDomainNotAllowed, got %v", err)
	}
}

func TestUserAuthService_Register_WeakPassword(t *testing.T) {
	svc, _, cleanup := newServiceWithMockAndConfig(t, func(cfg *config.Config) {
		cfg.Password.Policy = config.PasswordPolicy{MinLength: 8, RequireNumber: true}
	})
	defer cleanup()

	_, err := svc.auth.Register(context.Background(), &types.RegisterRequest{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "short",
		Role:     entity.RoleUser,
	})
	if !errors.Is(err, service.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestUserAuthService_Verify_ActivatesUser(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	updatedAt := testNow.Add(-time.Hour)
	token, err := service.VerificationToken(&entity.User{PasswordHash: "hash-abcdef", UpdatedAt: updatedAt})
	if err != nil {
		t.Fatalf("failed to build verification token: %v", err)
	}

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			uint64(1), "Jane", "jane@example.com", "jane@example.com", "hash-abcdef",
			entity.RoleUser, false, nil, updatedAt, updatedAt,
		))
	mock.ExpectExec(updateUserQuery).
		WithArgs("Jane", "jane@example.com", "jane@example.com", "hash-abcdef", entity.RoleUser, true, testNow, testNow, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.auth.Verify(context.Background(), &types.VerifyUserRequest{Token: token, Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !res.IsActive {
		t.Fatalf("expected user to be active")
	}
	if len(svc.notifier.sent) != 1 || svc.notifier.sent[0].kind != "welcome" {
		t.Fatalf("expected welcome email, got %+v", svc.notifier.sent)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Verify_TokenStaleAfterUpdate(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	token, err := service.VerificationToken(&entity.User{PasswordHash: "hash-abcdef", UpdatedAt: testNow.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("failed to build verification token: %v", err)
	}

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			uint64(1), "Jane", "jane@example.com", "jane@example.com", "hash-abcdef",
			entity.RoleUser, true, testNow, testNow.Add(-2*time.Hour), testNow,
		))

	_, err = svc.auth.Verify(context.Background(), &types.VerifyUserRequest{Token: token, Email: "jane@example.com"})
	if !errors.Is(err, service.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Verify_UnknownEmail(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := svc.auth.Verify(context.Background(), &types.VerifyUserRequest{Token: "x", Email: "ghost@example.com"})
	if !errors.Is(err, service.ErrInvalidVerificationLink) {
		t.Fatalf("expected ErrInvalidVerificationLink, got %v", err)
	}
}

func TestUserAuthService_Login_IssuesSessionBackedTokens(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	res := login(t, svc, mock, 7)
	if res.TokenType != "Bearer" {
		t.Fatalf("expected Bearer token type, got %q", res.TokenType)
	}
	if res.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in %d", res.ExpiresIn)
	}

	claims := &service.AccessClaims{}
	_, err := jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("access-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to parse access token: %v", err)
	}
	if claims.SessionID != 7 || claims.Subject != "1" || claims.Role != entity.RoleUser || len(claims.AccessKey) != 50 {
		t.Fatalf("unexpected access claims: %+v", claims)
	}

	refreshClaims := &service.RefreshClaims{}
	_, err = jwt.ParseWithClaims(res.RefreshToken, refreshClaims, func(*jwt.Token) (interface{}, error) {
		return []byte("refresh-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to parse refresh token: %v", err)
	}
	if len(refreshClaims.RefreshKey) != 100 || refreshClaims.AccessKey != claims.AccessKey {
		t.Fatalf("unexpected refresh claims: %+v", refreshClaims)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Login_Failures(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		password string
		want     error
	}{
		{
			name:     "unknown email",
			rows:     sqlmock.NewRows(userColumns),
			password: "password",
			want:     service.ErrEmailNotRegistered,
		},
		{
			name: "wrong password",
			rows: sqlmock.NewRows(userColumns).AddRow(
				uint64(1), "Jane", "jane@example.com", "jane@example.com", string(hash),
				entity.RoleUser, true, testNow, testNow, testNow,
			),
			password: "wrong",
			want:     service.ErrInvalidCredentials,
		},
		{
			name: "not verified",
			rows: sqlmock.NewRows(userColumns).AddRow(
				uint64(1), "Jane", "jane@example.com", "jane@example.com", string(hash),
				entity.RoleUser, false, nil, testNow, testNow,
			),
			password: "password",
			want:     service.ErrAccountNotVerified,
		},
		{
			name: "inactive",
			rows: sqlmock.NewRows(userColumns).AddRow(
				uint64(1), "Jane", "jane@example.com", "jane@example.com", string(hash),
				entity.RoleUser, false, testNow, testNow, testNow,
			),
			password: "password",
			want:     service.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, cleanup := newServiceWithMock(t)
			defer cleanup()

			mock.ExpectQuery(findByCanonicalEmailQuery).
				WithArgs("jane@example.com").
				WillReturnRows(tt.rows)

			_, err := svc.auth.Login(context.Background(), &types.LoginRequest{
				Username: "jane@example.com",
				Password: tt.password,
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUserAuthService_RefreshToken_RotatesSession(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	tokens := login(t, svc, mock, 7)

	mock.ExpectBegin()
	mock.ExpectQuery(findSessionForRefresh).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(1), testNow).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(
			uint64(7), uint64(1), "access", "refresh", testNow, testNow.Add(24*time.Hour),
		))
	mock.ExpectQuery(findByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))
	mock.ExpectExec(expireSessionQuery).
		WithArgs(testNow, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertSessionQuery).
		WithArgs(uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), testNow, testNow.Add(24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	res, err := svc.auth.RefreshToken(context.Background(), &types.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected a new token pair, got %+v", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_RefreshToken_SessionGone(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	tokens := login(t, svc, mock, 7)

	mock.ExpectBegin()
	mock.ExpectQuery(findSessionForRefresh).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(1), testNow).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	mock.ExpectRollback()

	_, err := svc.auth.RefreshToken(context.Background(), &types.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	if !errors.Is(err, service.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	tokens := login(t, svc, mock, 7)

	_, err := svc.auth.RefreshToken(context.Background(), &types.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	if !errors.Is(err, service.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	_, err = svc.auth.RefreshToken(context.Background(), &types.RefreshTokenRequest{RefreshToken: "not-a-jwt"})
	if !errors.Is(err, service.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Authenticate(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	tokens := login(t, svc, mock, 7)

	mock.ExpectQuery(findSessionForAccess).
		WithArgs(uint64(7), sqlmock.AnyArg(), uint64(1), testNow).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(
			uint64(7), uint64(1), "access", "refresh", testNow, testNow.Add(24*time.Hour),
		))
	mock.ExpectQuery(findByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))

	user, err := svc.auth.Authenticate(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected user 1, got %d", user.ID)
	}

	mock.ExpectQuery(findSessionForAccess).
		WithArgs(uint64(7), sqlmock.AnyArg(), uint64(1), testNow).
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	if _, err = svc.auth.Authenticate(context.Background(), tokens.AccessToken); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}

	if _, err = svc.auth.Authenticate(context.Background(), tokens.RefreshToken); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected refresh token to be rejected, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_Logout_DeletesAllSessions(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectExec(deleteSessionsQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := svc.auth.Logout(context.Background(), 1); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_ForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	if err := svc.auth.ForgotPassword(context.Background(), &types.ForgotPasswordRequest{Email: "ghost@example.com"}); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(svc.notifier.sent) != 0 {
		t.Fatalf("expected no email, got %+v", svc.notifier.sent)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_ForgotPassword_SendsResetLink(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))
	mock.ExpectExec(insertResetTokenQuery).
		WithArgs(uint64(1), sqlmock.AnyArg(), testNow.Add(15*time.Minute), false, testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := svc.auth.ForgotPassword(context.Background(), &types.ForgotPasswordRequest{Email: "jane@example.com"}); err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}

	if len(svc.notifier.sent) != 1 || svc.notifier.sent[0].kind != "password_reset" {
		t.Fatalf("expected reset email, got %+v", svc.notifier.sent)
	}
	link := svc.notifier.sent[0].link
	if !strings.HasPrefix(link, "http://shop.test/reset-password?") {
		t.Fatalf("unexpected reset link %q", link)
	}
	if token := linkQuery(t, link).Get("token"); len(token) != 43 {
		t.Fatalf("expected 32-byte url-safe token, got %q", token)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_ResetPassword_UpdatesHashAndRevokesSessions(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))
	mock.ExpectBegin()
	mock.ExpectQuery(findResetTokenForUpdate).
		WithArgs(uint64(1), "reset-token").
		WillReturnRows(sqlmock.NewRows(resetTokenColumns).AddRow(
			uint64(4), uint64(1), "reset-token", testNow.Add(10*time.Minute), false, nil, testNow.Add(-5*time.Minute),
		))
	mock.ExpectExec(updateUserQuery).
		WithArgs("Jane Doe", "jane@example.com", "jane@example.com", sqlmock.AnyArg(), entity.RoleUser, true, sqlmock.AnyArg(), testNow, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(markResetTokenUsedQuery).
		WithArgs(testNow, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteSessionsQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := svc.auth.ResetPassword(context.Background(), &types.ResetPasswordRequest{
		Email:    "jane@example.com",
		Password: "new-password",
		Token:    "reset-token",
	})
	if err != nil {
		t.Fatalf("reset password failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_ResetPassword_ExpiredToken(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("jane@example.com").
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))
	mock.ExpectBegin()
	mock.ExpectQuery(findResetTokenForUpdate).
		WithArgs(uint64(1), "reset-token").
		WillReturnRows(sqlmock.NewRows(resetTokenColumns).AddRow(
			uint64(4), uint64(1), "reset-token", testNow.Add(-time.Minute), false, nil, testNow.Add(-16*time.Minute),
		))
	mock.ExpectRollback()

	err := svc.auth.ResetPassword(context.Background(), &types.ResetPasswordRequest{
		Email:    "jane@example.com",
		Password: "new-password",
		Token:    "reset-token",
	})
	if !errors.Is(err, service.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserAuthService_ResetPassword_UnknownUser(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByCanonicalEmailQuery).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	err := svc.auth.ResetPassword(context.Background(), &types.ResetPasswordRequest{
		Email:    "ghost@example.com",
		Password: "new-password",
		Token:    "reset-token",
	})
	if !errors.Is(err, service.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestUserAuthService_Me(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(activeUserRow(t, 1, "jane@example.com", "password"))
	mock.ExpectQuery(findByIDQuery).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	res, err := svc.auth.Me(context.Background(), 1)
	if err != nil {
		t.Fatalf("me failed: %v", err)
	}
	if res.Email != "jane@example.com" {
		t.Fatalf("unexpected user %+v", res)
	}

	if _, err = svc.auth.Me(context.Background(), 2); !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmailDomainAllowed(t *testing.T) {
	allowed := []string{"example.com", "shop.io"}

	if !service.EmailDomainAllowed("jane@Example.com", allowed) {
		t.Fatalf("expected example.com to be allowed")
	}
	if service.EmailDomainAllowed("jane@other.org", allowed) {
		t.Fatalf("expected other.org to be rejected")
	}
	if !service.EmailDomainAllowed("jane@other.org", nil) {
		t.Fatalf("expected empty allow-list to accept any domain")
	}
}

func TestCanonicalizeEmail(t *testing.T) {
	tests := map[string]string{
		" Jane.Doe@Example.com ": "jane.doe@example.com",
		"j.doe+shop@gmail.com":   "jdoe@gmail.com",
		"J.Doe@GoogleMail.com":   "jdoe@googlemail.com",
		"jane+tag@example.com":   "jane+tag@example.com",
		"not-an-email":           "not-an-email",
	}

	for in, want := range tests {
		if got := service.CanonicalizeEmail(in); got != want {
			t.Fatalf("CanonicalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
