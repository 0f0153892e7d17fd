package middleware

import (
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
	ContextKeyCaller = "internal_caller"
	apiKeyHeader     = "X-API-Key"
)

// APIKeyMiddleware guards the /internal routes used by sibling services.
type APIKeyMiddleware struct {
	authService service.InternalAuthService
}

func NewAPIKeyMiddleware(authService service.InternalAuthService) *APIKeyMiddleware {
	return &APIKeyMiddleware{authService: authService}
}

func (m *APIKeyMiddleware) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}

		apiKey := strings.TrimSpace(c.Request().Header.Get(apiKeyHeader))
		if apiKey == "" {
			logrus.WithField("path", c.Path()).Debug("Missing internal api key")
			return abort(c, http.StatusUnauthorized, "Unauthorized")
		}

		caller, err := m.authService.ValidateInternalAPIKey(c.Request().Context(), apiKey)
		switch {
		case errors.Is(err, service.ErrInvalidInternalAPIKey):
			logrus.WithField("path", c.Path()).Warn("Rejected internal api key")
			return abort(c, http.StatusUnauthorized, "Unauthorized")
		case err != nil:
			logrus.WithError(err).Error("Internal api key validation failed")
			return abort(c, http.StatusInternalServerError, "Internal server error")
		}

		c.Set(ContextKeyCaller, caller)
		return next(c)
	}
}

// Caller returns the service resolved by RequireAPIKey, or nil on routes it
// does not guard.
func Caller(c echo.Context) *dto.InternalAccessResult {
	caller, _ := c.Get(ContextKeyCaller).(*dto.InternalAccessResult)
	return caller
}

// RequireAccess must run after RequireAPIKey.
func (m *APIKeyMiddleware) RequireAccess(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := Caller(c)
			if caller == nil || !entity.HasAccess(caller.AllowedAccess, scope) {
				entry := logrus.WithField("scope", scope)
				if caller != nil {
					entry = entry.WithField("caller", caller.ServiceName)
				}
				entry.Warn("Internal caller lacks access")
				return abort(c, http.StatusForbidden, "Forbidden")
			}
			return next(c)
		}
	}
}
