package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type UserAuthController struct {
	userAuthService service.UserAuthService
}

func NewUserAuthController(userAuthService service.UserAuthService) *UserAuthController {
	return &UserAuthController{userAuthService: userAuthService}
}

func (c *UserAuthController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return errorJSON(ctx, http.StatusBadRequest, err.Error())
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	result, err := c.userAuthService.Register(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			logrus.WithField("email", req.Email).Warn("Register failed: user already exists")
			return errorJSON(ctx, http.StatusBadRequest, "Email already registered.")
		}
		if errors.Is(err, service.ErrEmailDomainNotAllowed) {
			logrus.WithField("email", req.Email).Warn("Register failed: email domain not allowed")
			return errorJSON(ctx, http.StatusBadRequest, "Email domain is not allowed.")
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.WithField("email", req.Email).Warn("Register failed: weak password")
			return errorJSON(ctx, http.StatusBadRequest, err.Error())
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": result.ID,
		"email":   result.Email,
	}).Info("User registered")

	return ctx.JSON(http.StatusCreated, result)
}

func (c *UserAuthController) Verify(ctx echo.Context) error {
	req, err := types.NewVerifyUserRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind verify request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Verify validation failed")
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	logrus.WithField("email", req.Email).Info("Account activation requested")
	result, err := c.userAuthService.Verify(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVerificationLink) {
			logrus.WithField("email", req.Email).Warn("Activation failed: email not found")
			return errorJSON(ctx, http.StatusBadRequest, "The link is not valid.")
		}
		if errors.Is(err, service.ErrVerificationFailed) {
			logrus.WithField("email", req.Email).Warn("Activation failed: invalid token")
			return errorJSON(ctx, http.StatusBadRequest, "The link is either expired or not valid.")
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Activation failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	logrus.WithField("user_id", result.ID).Info("User activated")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) Me(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		logrus.Warn("Me failed: missing user_id in context")
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	result, err := c.userAuthService.Me(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Me failed: user not found")
			return errorJSON(ctx, http.StatusNotFound, "User not found")
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Me failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Username).Debug("Login validation failed")
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	logrus.WithField("email", req.Username).Info("Login request received")
	result, err := c.userAuthService.Login(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotRegistered):
			logrus.WithField("email", req.Username).Warn("Login failed: email not registered")
			return errorJSON(ctx, http.StatusBadRequest, "Email is not registered.")
		case errors.Is(err, service.ErrInvalidCredentials):
			logrus.WithField("email", req.Username).Warn("Login failed: invalid credentials")
			return errorJSON(ctx, http.StatusBadRequest, "Invalid email or password.")
		case errors.Is(err, service.ErrAccountNotVerified):
			logrus.WithField("email", req.Username).Warn("Login failed: account not verified")
			return errorJSON(ctx, http.StatusBadRequest, "Your account is not verified. Please check your email for the verification link.")
		case errors.Is(err, service.ErrAccountInactive):
			logrus.WithField("email", req.Username).Warn("Login failed: account inactive")
			return errorJSON(ctx, http.StatusBadRequest, "Your account is not active.")
		}
		logrus.WithError(err).WithField("email", req.Username).Error("Login failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	logrus.WithField("email", req.Username).Info("Login successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) RefreshToken(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh token request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Refresh token validation failed")
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	logrus.Info("Refresh token request received")
	result, err := c.userAuthService.RefreshToken(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			logrus.Warn("Refresh token failed: invalid request")
			return errorJSON(ctx, http.StatusBadRequest, "Invalid Request.")
		}
		logrus.WithError(err).Error("Refresh token failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	logrus.Info("Refresh token successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) Logout(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		logrus.Warn("Logout failed: missing user_id in context")
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	logrus.WithField("user_id", userID).Info("Logout request received")
	if err := c.userAuthService.Logout(ctx.Request().Context(), userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Logout failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Logout failed. Please try again.")
	}

	logrus.WithField("user_id", userID).Info("Logout successful")
	return ctx.JSON(http.StatusOK, &types.DetailResponse{Detail: "Logout successful."})
}

func (c *UserAuthController) ForgotPassword(ctx echo.Context) error {
	req, err := types.NewForgotPasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind forgot password request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Forgot password validation failed")
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	logrus.WithField("email", req.Email).Info("Password reset requested")
	if err = c.userAuthService.ForgotPassword(ctx.Request().Context(), req); err != nil {
		if errors.Is(err, service.ErrAccountNotVerified) {
			logrus.WithField("email", req.Email).Warn("Password reset refused: account not verified")
			return errorJSON(ctx, http.StatusBadRequest, "Account not verified.")
		}
		if errors.Is(err, service.ErrAccountInactive) {
			logrus.WithField("email", req.Email).Warn("Password reset refused: account not active")
			return errorJSON(ctx, http.StatusBadRequest, "Account not active.")
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Forgot password failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{
		Message: "If the email is registered, a reset link has been sent.",
	})
}

func (c *UserAuthController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Reset password validation failed")
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	logrus.WithField("email", req.Email).Info("Reset password request received")
	err = c.userAuthService.ResetPassword(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			logrus.WithField("email", req.Email).Warn("Reset password failed: invalid request")
			return errorJSON(ctx, http.StatusBadRequest, "Invalid Request.")
		case errors.Is(err, service.ErrInvalidResetToken):
			logrus.WithField("email", req.Email).Warn("Reset password failed: invalid token")
			return errorJSON(ctx, http.StatusBadRequest, "Invalid or expired token.")
		case errors.Is(err, service.ErrWeakPassword):
			logrus.WithField("email", req.Email).Warn("Reset password failed: weak password")
			return errorJSON(ctx, http.StatusBadRequest, err.Error())
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Reset password failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	logrus.WithField("email", req.Email).Info("Password reset successful")
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Your password has been updated successfully."})
}
