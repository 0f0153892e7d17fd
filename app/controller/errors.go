package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vibast-solutions/ms-go-shop/app/dto"
	"github.com/vibast-solutions/ms-go-shop/app/middleware"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	msgInternalError    = "Internal server error"
	msgValidationError  = "Validation error"
	msgNotAuthenticated = "Not authenticated"
)

func errorJSON(ctx echo.Context, code int, message string) error {
	return ctx.JSON(code, dto.NewErrorResponse(code, message))
}

// currentUserID returns the id RequireAuth stored on the context.
func currentUserID(ctx echo.Context) (uint64, bool) {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	return userID, ok
}

// HTTPErrorHandler renders every error that reaches echo in the shared error
// envelope. Unclassified errors are logged and reported as a generic 500.
func HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := msgInternalError

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Internal != nil {
			var internal *echo.HTTPError
			if errors.As(httpErr.Internal, &internal) {
				httpErr = internal
			}
		}
		code = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
		if code >= http.StatusInternalServerError {
			message = msgInternalError
		}
		logrus.WithFields(logrus.Fields{
			"method": ctx.Request().Method,
			"uri":    ctx.Request().RequestURI,
			"code":   code,
		}).Warn(message)
	} else {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": ctx.Request().Method,
			"uri":    ctx.Request().RequestURI,
		}).Error("Unhandled error")
	}

	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(code)
	} else {
		err = errorJSON(ctx, code, message)
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to write error response")
	}
}
