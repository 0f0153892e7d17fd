package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/app/dto"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyUserName  = "user_name"
	ContextKeyUserEmail = "user_email"
)

type accessTokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

type AuthMiddleware struct {
	authService accessTokenAuthenticator
}

func NewAuthMiddleware(authService accessTokenAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return abort(c, http.StatusUnauthorized, "Not authenticated")
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return abort(c, http.StatusUnauthorized, "Not authenticated")
		}

		user, err := m.authService.Authenticate(c.Request().Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				logrus.Debug("Invalid or expired access token")
				return abort(c, http.StatusUnauthorized, "Could not validate credentials")
			}
			logrus.WithError(err).Error("Access token validation failed")
			return abort(c, http.StatusInternalServerError, "Internal server error")
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUserRole, user.Role)
		c.Set(ContextKeyUserName, user.Name)
		c.Set(ContextKeyUserEmail, user.Email)

		return next(c)
	}
}

// RequireRole lets the request through only when RequireAuth stored one of
// the given roles. It must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextKeyUserRole).(string)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}

			logrus.WithFields(logrus.Fields{
				"user_id": c.Get(ContextKeyUserID),
				"role":    role,
				"path":    c.Path(),
			}).Debug("Role not allowed")
			return abort(c, http.StatusForbidden, "You do not have permission to perform this action")
		}
	}
}

func abort(c echo.Context, code int, message string) error {
	return c.JSON(code, dto.NewErrorResponse(code, message))
}
