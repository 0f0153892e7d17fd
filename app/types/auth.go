package types

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/labstack/echo/v4"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.TrimSpace(body.Email)
	body.Role = strings.ToLower(strings.TrimSpace(body.Role))
	return &body, nil
}

func (r *RegisterRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is mandatory")
	}
	if r.Email == "" {
		return errors.New("email is mandatory")
	}
	if !validEmail(r.Email) {
		return errors.New("enter a valid email address")
	}
	if strings.TrimSpace(r.Password) == "" {
		return errors.New("password is mandatory")
	}
	if !entity.ValidRole(r.Role) {
		return errors.New("please select a valid role")
	}

	return nil
}

type VerifyUserRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func NewVerifyUserRequestFromContext(ctx echo.Context) (*VerifyUserRequest, error) {
	var body VerifyUserRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	return &body, nil
}

func (r *VerifyUserRequest) Validate() error {
	if r.Token == "" || r.Email == "" {
		return errors.New("token and email are required")
	}

	return nil
}

// LoginRequest carries form-encoded credentials; username holds the email.
type LoginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	return &LoginRequest{
		Username: strings.TrimSpace(ctx.FormValue("username")),
		Password: ctx.FormValue("password"),
	}, nil
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" || strings.TrimSpace(r.Password) == "" {
		return errors.New("username and password are required")
	}

	return nil
}

type RefreshTokenRequest struct {
	RefreshToken string
}

func NewRefreshTokenRequestFromContext(ctx echo.Context) (*RefreshTokenRequest, error) {
	return &RefreshTokenRequest{
		RefreshToken: strings.TrimSpace(ctx.Request().Header.Get("refresh-token")),
	}, nil
}

func (r *RefreshTokenRequest) Validate() error {
	if r.RefreshToken == "" {
		return errors.New("refresh-token header is required")
	}

	return nil
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func NewForgotPasswordRequestFromContext(ctx echo.Context) (*ForgotPasswordRequest, error) {
	var body ForgotPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	return &body, nil
}

func (r *ForgotPasswordRequest) Validate() error {
	if r.Email == "" || !validEmail(r.Email) {
		return errors.New("a valid email is required")
	}

	return nil
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

func NewResetPasswordRequestFromContext(ctx echo.Context) (*ResetPasswordRequest, error) {
	var body ResetPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	body.Token = strings.TrimSpace(body.Token)
	return &body, nil
}

func (r *ResetPasswordRequest) Validate() error {
	if r.Email == "" || r.Token == "" || strings.TrimSpace(r.Password) == "" {
		return errors.New("email, password and token are required")
	}

	return nil
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type InternalAccessResponse struct {
	ServiceName   string   `json:"service_name"`
	AllowedAccess []string `json:"allowed_access"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
