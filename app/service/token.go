package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/types"
	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/golang-jwt/jwt/v5"
)

const (
	refreshKeyLength = 100
	accessKeyLength  = 50
	tokenTypeBearer  = "Bearer"
	keyAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// AccessClaims is the payload of an access token. SessionID and AccessKey
// point at the session row that backs the token.
type AccessClaims struct {
	AccessKey string `json:"a"`
	SessionID uint64 `json:"r"`
	Name      string `json:"n"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	RefreshKey string `json:"t"`
	AccessKey  string `json:"a"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

func (c *RefreshClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

type sessionCreator interface {
	Create(ctx context.Context, token *entity.UserToken) error
}

// tokenIssuer mints access/refresh pairs. The session row is written through
// repo before any token is signed.
type tokenIssuer struct {
	cfg config.JWTConfig
	now func() time.Time
}

func (i *tokenIssuer) issue(ctx context.Context, repo sessionCreator, user *entity.User) (*types.TokenResponse, error) {
	refreshKey, err := randomKey(refreshKeyLength)
	if err != nil {
		return nil, err
	}
	accessKey, err := randomKey(accessKeyLength)
	if err != nil {
		return nil, err
	}

	now := i.now()
	session := &entity.UserToken{
		UserID:     user.ID,
		AccessKey:  accessKey,
		RefreshKey: refreshKey,
		CreatedAt:  now,
		ExpiresAt:  now.Add(i.cfg.RefreshTokenTTL),
	}
	if err = repo.Create(ctx, session); err != nil {
		return nil, err
	}

	subject := strconv.FormatUint(user.ID, 10)
	accessClaims := &AccessClaims{
		AccessKey: accessKey,
		SessionID: session.ID,
		Name:      user.Name,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTokenTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return nil, err
	}

	refreshClaims := &RefreshClaims{
		RefreshKey: refreshKey,
		AccessKey:  accessKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTokenTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(i.cfg.RefreshSecret))
	if err != nil {
		return nil, err
	}

	return &types.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(i.cfg.AccessTokenTTL.Seconds()),
		TokenType:    tokenTypeBearer,
	}, nil
}

func (i *tokenIssuer) parseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(tokenString, claims, i.cfg.Secret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *tokenIssuer) parseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(tokenString, claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *tokenIssuer) parse(tokenString string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func randomKey(length int) (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = keyAlphabet[n.Int64()]
	}
	return string(buf), nil
}
