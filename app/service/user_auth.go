package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/metrics"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/types"
	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists              = errors.New("email already registered")
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailDomainNotAllowed   = errors.New("email domain is not allowed")
	ErrWeakPassword            = errors.New("password does not meet policy requirements")
	ErrEmailNotRegistered      = errors.New("email is not registered")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrAccountNotVerified      = errors.New("account not verified")
	ErrAccountInactive         = errors.New("account not active")
	ErrInvalidVerificationLink = errors.New("the link is not valid")
	ErrVerificationFailed      = errors.New("the link is either expired or not valid")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidResetToken       = errors.New("invalid or expired token")
	ErrInvalidToken            = errors.New("invalid or expired token")
)

const (
	verifyAccountContext = "verify-account"
	contextTimeLayout    = "01022006150405"
	resetTokenBytes      = 32
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

type userTokenRepository interface {
	Create(ctx context.Context, token *entity.UserToken) error
	FindActiveForAccess(ctx context.Context, id uint64, accessKey string, userID uint64, now time.Time) (*entity.UserToken, error)
	DeleteByUserID(ctx context.Context, userID uint64) (int64, error)
}

type passwordResetTokenRepository interface {
	Create(ctx context.Context, token *entity.PasswordResetToken) error
}

type UserAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.UserResponse, error)
	Verify(ctx context.Context, req *types.VerifyUserRequest) (*types.UserResponse, error)
	Me(ctx context.Context, userID uint64) (*types.UserResponse, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.TokenResponse, error)
	RefreshToken(ctx context.Context, req *types.RefreshTokenRequest) (*types.TokenResponse, error)
	Logout(ctx context.Context, userID uint64) error
	ForgotPassword(ctx context.Context, req *types.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

type userAuthService struct {
	runtime
	db          *sql.DB
	userRepo    userRepository
	sessionRepo userTokenRepository
	resetRepo   passwordResetTokenRepository
	notifier    Notifier
	cfg         *config.Config
	tokens      *tokenIssuer
}

func NewUserAuthService(
	db *sql.DB,
	userRepo userRepository,
	sessionRepo userTokenRepository,
	resetRepo passwordResetTokenRepository,
	notifier Notifier,
	cfg *config.Config,
	opts ...Option,
) UserAuthService {
	rt := newRuntime(opts)
	return &userAuthService{
		runtime:     rt,
		db:          db,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		resetRepo:   resetRepo,
		notifier:    notifier,
		cfg:         cfg,
		tokens:      &tokenIssuer{cfg: cfg.JWT, now: rt.now},
	}
}

func (s *userAuthService) Register(ctx context.Context, req *types.RegisterRequest) (*types.UserResponse, error) {
	if !EmailDomainAllowed(req.Email, s.cfg.App.AllowedEmailDomains) {
		return nil, ErrEmailDomainNotAllowed
	}

	if err := s.cfg.Password.Policy.Validate(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	canonicalEmail := CanonicalizeEmail(req.Email)
	existing, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().Truncate(time.Second)
	user := &entity.User{
		Name:           req.Name,
		Email:          req.Email,
		CanonicalEmail: canonicalEmail,
		PasswordHash:   string(hashedPassword),
		Role:           req.Role,
		IsActive:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err = s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	verifyToken, err := VerificationToken(user)
	if err != nil {
		return nil, err
	}

	link := s.frontendLink("/auth/account-verify", verifyToken, user.Email)
	s.notify(func(ctx context.Context) error {
		return s.notifier.SendVerification(ctx, user, link)
	}, func(err error) {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send verification email")
	})

	return types.NewUserResponse(user), nil
}

func (s *userAuthService) Verify(ctx context.Context, req *types.VerifyUserRequest) (*types.UserResponse, error) {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidVerificationLink
	}

	if err = bcrypt.CompareHashAndPassword([]byte(req.Token), []byte(verificationContext(user))); err != nil {
		return nil, ErrVerificationFailed
	}

	now := s.now().Truncate(time.Second)
	user.IsActive = true
	user.VerifiedAt = sql.NullTime{Time: now, Valid: true}
	user.UpdatedAt = now

	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.notify(func(ctx context.Context) error {
		return s.notifier.SendWelcome(ctx, user)
	}, func(err error) {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send welcome email")
	})

	return types.NewUserResponse(user), nil
}

func (s *userAuthService) Me(ctx context.Context, userID uint64) (*types.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return types.NewUserResponse(user), nil
}

func (s *userAuthService) Login(ctx context.Context, req *types.LoginRequest) (*types.TokenResponse, error) {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		metrics.RecordLogin("unknown_email")
		return nil, ErrEmailNotRegistered
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.RecordLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified() {
		metrics.RecordLogin("not_verified")
		return nil, ErrAccountNotVerified
	}
	if !user.IsActive {
		metrics.RecordLogin("inactive")
		return nil, ErrAccountInactive
	}

	res, err := s.tokens.issue(ctx, s.sessionRepo, user)
	if err != nil {
		return nil, err
	}

	metrics.RecordLogin("success")
	return res, nil
}

func (s *userAuthService) RefreshToken(ctx context.Context, req *types.RefreshTokenRequest) (*types.TokenResponse, error) {
	claims, err := s.tokens.parseRefresh(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	userID, err := claims.UserID()
	if err != nil || claims.RefreshKey == "" || claims.AccessKey == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txSessionRepo := repository.NewUserTokenRepository(tx)
	now := s.now()

	session, err := txSessionRepo.FindActiveForRefresh(ctx, claims.RefreshKey, claims.AccessKey, userID, now)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidRequest
	}

	user, err := repository.NewUserRepository(tx).FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidRequest
	}

	if err = txSessionRepo.Expire(ctx, session.ID, now); err != nil {
		return nil, err
	}

	res, err := s.tokens.issue(ctx, txSessionRepo, user)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *userAuthService) Logout(ctx context.Context, userID uint64) error {
	deleted, err := s.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		logrus.WithField("user_id", userID).Warn("No active sessions found on logout")
	}
	return nil
}

func (s *userAuthService) ForgotPassword(ctx context.Context, req *types.ForgotPasswordRequest) error {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if !user.IsVerified() {
		return ErrAccountNotVerified
	}
	if !user.IsActive {
		return ErrAccountInactive
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}

	now := s.now()
	resetToken := &entity.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(s.cfg.Tokens.ResetTTL),
		Used:      false,
		CreatedAt: now,
	}
	if err = s.resetRepo.Create(ctx, resetToken); err != nil {
		return err
	}

	link := s.frontendLink("/reset-password", token, user.Email)
	s.notify(func(ctx context.Context) error {
		return s.notifier.SendPasswordReset(ctx, user, link)
	}, func(err error) {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send password reset email")
	})

	return nil
}

func (s *userAuthService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if user == nil || !user.IsVerified() || !user.IsActive {
		return ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now()
	resetToken, err := repository.NewPasswordResetTokenRepository(tx).FindUnusedForUpdate(ctx, user.ID, req.Token)
	if err != nil {
		return err
	}
	if resetToken == nil || !resetToken.ExpiresAt.After(now) {
		return ErrInvalidResetToken
	}

	if err = s.cfg.Password.Policy.Validate(req.Password); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = now.Truncate(time.Second)
	if err = repository.NewUserRepository(tx).Update(ctx, user); err != nil {
		return err
	}

	if err = repository.NewPasswordResetTokenRepository(tx).MarkUsed(ctx, resetToken.ID, now); err != nil {
		return err
	}

	if _, err = repository.NewUserTokenRepository(tx).DeleteByUserID(ctx, user.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *userAuthService) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	claims, err := s.tokens.parseAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.FindActiveForAccess(ctx, claims.SessionID, claims.AccessKey, userID, s.now())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}

func (s *userAuthService) frontendLink(path, token, email string) string {
	query := url.Values{}
	query.Set("token", token)
	query.Set("email", email)
	return s.cfg.App.FrontendHost + path + "?" + query.Encode()
}

// VerificationToken derives the account verification token from the user's
// current state. The token stops matching once the user row is updated.
func VerificationToken(user *entity.User) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(verificationContext(user)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verificationContext(user *entity.User) string {
	suffix := user.PasswordHash
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return verifyAccountContext + suffix + user.UpdatedAt.UTC().Format(contextTimeLayout)
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
