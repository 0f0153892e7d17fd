package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/dto"
	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/sirupsen/logrus"
)

const (
	internalKeyPrefix   = "shop_ik_"
	internalKeyLifetime = 100 * 365 * 24 * time.Hour
	minOldKeyGrace      = 5 * time.Minute
)

var (
	ErrInvalidInternalAPIKey    = errors.New("invalid or expired internal api key")
	ErrServiceHasActiveAPIKey   = errors.New("service already has an active api key")
	ErrServiceHasNoActiveAPIKey = errors.New("service has no active api key")
	ErrInvalidRegenerationTTL   = errors.New("invalid regeneration ttl")
	ErrUnknownAccessScope       = errors.New("unknown access scope")
	errServiceNameRequired      = errors.New("service name is required")
)

type InternalAPIKeyRepository interface {
	Create(ctx context.Context, key *entity.InternalAPIKey) error
	FindActiveByHash(ctx context.Context, keyHash string, now time.Time) (*entity.InternalAPIKey, error)
	FindActiveByServiceName(ctx context.Context, serviceName string, now time.Time) ([]*entity.InternalAPIKey, error)
	SetAllowedAccess(ctx context.Context, id uint64, allowedAccess []string, updatedAt time.Time) error
	DeactivateByServiceName(ctx context.Context, serviceName string, now time.Time) (int64, error)
	ExpireByServiceName(ctx context.Context, serviceName string, expiresAt, now time.Time) (int64, error)
}

// InternalAuthService manages the API keys that let sibling services reach
// the internal order endpoints.
type InternalAuthService interface {
	ValidateInternalAPIKey(ctx context.Context, apiKey string) (*dto.InternalAccessResult, error)
	GenerateInternalAPIKey(ctx context.Context, serviceName string) (string, error)
	AddInternalAllowedAccess(ctx context.Context, serviceName, scope string) error
	DeactivateInternalAPIKeys(ctx context.Context, serviceName string) (int, error)
	RegenerateInternalAPIKey(ctx context.Context, serviceName string, oldKeyTTL time.Duration) (string, error)
}

type internalAuthService struct {
	runtime
	keys InternalAPIKeyRepository
}

func NewInternalAuthService(keys InternalAPIKeyRepository, opts ...Option) InternalAuthService {
	return &internalAuthService{
		runtime: newRuntime(opts),
		keys:    keys,
	}
}

func (s *internalAuthService) ValidateInternalAPIKey(ctx context.Context, apiKey string) (*dto.InternalAccessResult, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrInvalidInternalAPIKey
	}

	key, err := s.keys.FindActiveByHash(ctx, hashInternalAPIKey(apiKey), s.now())
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrInvalidInternalAPIKey
	}

	return &dto.InternalAccessResult{
		ServiceName:   key.ServiceName,
		AllowedAccess: key.AllowedAccess,
	}, nil
}

func (s *internalAuthService) GenerateInternalAPIKey(ctx context.Context, serviceName string) (string, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return "", errServiceNameRequired
	}

	active, err := s.keys.FindActiveByServiceName(ctx, serviceName, s.now())
	if err != nil {
		return "", err
	}
	if len(active) > 0 {
		return "", ErrServiceHasActiveAPIKey
	}

	return s.issueKey(ctx, serviceName, nil)
}

// AddInternalAllowedAccess grants scope on every usable key of the service,
// including keys still inside a regeneration grace period.
func (s *internalAuthService) AddInternalAllowedAccess(ctx context.Context, serviceName, scope string) error {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if !entity.ValidAccess(scope) {
		return ErrUnknownAccessScope
	}

	active, err := s.activeKeys(ctx, serviceName)
	if err != nil {
		return err
	}

	now := s.now()
	for _, key := range active {
		if entity.HasAccess(key.AllowedAccess, scope) {
			continue
		}

		access := append(slices.Clone(key.AllowedAccess), scope)
		slices.Sort(access)
		if err = s.keys.SetAllowedAccess(ctx, key.ID, access, now); err != nil {
			return err
		}
		key.AllowedAccess = access
	}

	logrus.WithFields(logrus.Fields{"service_name": active[0].ServiceName, "scope": scope}).Info("Internal access granted")
	return nil
}

func (s *internalAuthService) DeactivateInternalAPIKeys(ctx context.Context, serviceName string) (int, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return 0, errServiceNameRequired
	}

	count, err := s.keys.DeactivateByServiceName(ctx, serviceName, s.now())
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrServiceHasNoActiveAPIKey
	}

	logrus.WithFields(logrus.Fields{"service_name": serviceName, "count": count}).Info("Internal API keys deactivated")
	return int(count), nil
}

// RegenerateInternalAPIKey issues a new key carrying the union of the scopes
// of the current keys, which stay usable for oldKeyTTL.
func (s *internalAuthService) RegenerateInternalAPIKey(ctx context.Context, serviceName string, oldKeyTTL time.Duration) (string, error) {
	if oldKeyTTL <= minOldKeyGrace {
		return "", ErrInvalidRegenerationTTL
	}

	active, err := s.activeKeys(ctx, serviceName)
	if err != nil {
		return "", err
	}
	serviceName = active[0].ServiceName

	var access []string
	for _, key := range active {
		access = append(access, key.AllowedAccess...)
	}
	slices.Sort(access)
	access = slices.Compact(access)

	now := s.now()
	if _, err = s.keys.ExpireByServiceName(ctx, serviceName, now.Add(oldKeyTTL), now); err != nil {
		return "", err
	}

	return s.issueKey(ctx, serviceName, access)
}

func (s *internalAuthService) activeKeys(ctx context.Context, serviceName string) ([]*entity.InternalAPIKey, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return nil, errServiceNameRequired
	}

	active, err := s.keys.FindActiveByServiceName(ctx, serviceName, s.now())
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrServiceHasNoActiveAPIKey
	}
	return active, nil
}

// issueKey stores the hash of a fresh key and returns the raw key. The raw
// value is never persisted.
func (s *internalAuthService) issueKey(ctx context.Context, serviceName string, access []string) (string, error) {
	rawKey, err := newInternalAPIKey()
	if err != nil {
		return "", err
	}

	now := s.now()
	key := &entity.InternalAPIKey{
		ServiceName:   serviceName,
		KeyHash:       hashInternalAPIKey(rawKey),
		AllowedAccess: access,
		IsActive:      true,
		ExpiresAt:     now.Add(internalKeyLifetime),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.keys.Create(ctx, key); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{"service_name": serviceName, "key_id": key.ID}).Info("Internal API key issued")
	return rawKey, nil
}

func newInternalAPIKey() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return internalKeyPrefix + base64.RawURLEncoding.EncodeToString(secret), nil
}

func hashInternalAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
