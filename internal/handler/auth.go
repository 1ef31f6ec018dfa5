package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
	"github.com/iliyamo/grading-api/internal/service"
)

// Authenticator is the login flow used by AuthHandler.
type Authenticator interface {
	Login(ctx context.Context, email string) error
	Authenticate(ctx context.Context, email, emailToken string) (string, error)
}

// AuthHandler bundles dependencies for the login endpoints and /profile.
type AuthHandler struct {
	auth  Authenticator
	users *repository.UserRepo
}

func NewAuthHandler(auth Authenticator, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// ----- DTOs -----

type loginReq struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

type authenticateReq struct {
	Email      string `json:"email" validate:"required,email,max=320"`
	EmailToken string `json:"emailToken" validate:"required,numeric,len=8"`
}

// Login issues an email token.  The response is the same whether or not
// the account existed.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.auth.Login(c.Request().Context(), req.Email); err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email token sent"})
}

// Authenticate exchanges an email token for a bearer token returned in the
// Authorization response header.
func (h *AuthHandler) Authenticate(c echo.Context) error {
	var req authenticateReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := h.auth.Authenticate(c.Request().Context(), req.Email, req.EmailToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			return errUnauthenticated()
		}
		return errInternal(err)
	}
	c.Response().Header().Set(echo.HeaderAuthorization, token)
	return c.NoContent(http.StatusOK)
}

type profileResp struct {
	model.User
	OwnerOf []uint64 `json:"ownerOf"`
}

// Profile returns the caller's user row and the collections they manage.
func (h *AuthHandler) Profile(c echo.Context) error {
	cred, ok := middleware.Credentials(c)
	if !ok {
		return errUnauthenticated()
	}
	u, err := h.users.GetByID(c.Request().Context(), cred.UserID)
	if err != nil {
		return storeError(err, "user")
	}
	return c.JSON(http.StatusOK, profileResp{User: u, OwnerOf: cred.OwnerOf})
}
