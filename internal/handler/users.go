package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

// UserHandler serves /users and its sub resources.
type UserHandler struct {
	users  *repository.UserRepo
	tokens *repository.TokenRepo
	rates  *repository.RecordRateRepo
}

func NewUserHandler(users *repository.UserRepo, tokens *repository.TokenRepo, rates *repository.RecordRateRepo) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, rates: rates}
}

type createUserReq struct {
	Email     string        `json:"email" validate:"required,email,max=320"`
	FirstName *string       `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string       `json:"lastName" validate:"omitempty,max=255"`
	Social    *model.Social `json:"social"`
	IsAdmin   bool          `json:"isAdmin"`
}

type updateUserReq struct {
	Email     *string       `json:"email" validate:"omitempty,email,max=320"`
	FirstName *string       `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string       `json:"lastName" validate:"omitempty,max=255"`
	Social    *model.Social `json:"social"`
	IsAdmin   *bool         `json:"isAdmin"`
}

// List returns every user.  Admin only.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Create adds a user.  Admin only.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u := model.User{
		Email:     req.Email,
		FirstName: sanitizePtr(req.FirstName),
		LastName:  sanitizePtr(req.LastName),
		Social:    req.Social,
		IsAdmin:   req.IsAdmin,
	}
	if err := h.users.Create(c.Request().Context(), &u); err != nil {
		return storeError(err, "user")
	}
	return c.JSON(http.StatusCreated, u)
}

// Get returns one user.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	u, err := h.users.GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "user")
	}
	return c.JSON(http.StatusOK, u)
}

// Update changes profile fields.  Only administrators may change isAdmin.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cred, _ := middleware.Credentials(c)
	if req.IsAdmin != nil && !cred.IsAdmin {
		return errForbidden()
	}

	ctx := c.Request().Context()
	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "user")
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = sanitizePtr(req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = sanitizePtr(req.LastName)
	}
	if req.Social != nil {
		u.Social = req.Social
	}
	if req.IsAdmin != nil {
		u.IsAdmin = *req.IsAdmin
	}
	if err := h.users.Update(ctx, &u); err != nil {
		return storeError(err, "user")
	}
	return c.JSON(http.StatusOK, u)
}

// Delete removes a user with its memberships, tokens and grades.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return storeError(err, "user")
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeTokens invalidates every token of a user, logging them out
// everywhere.  Admin only.
func (h *UserHandler) RevokeTokens(c echo.Context) error {
	id, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.users.GetByID(ctx, id); err != nil {
		return storeError(err, "user")
	}
	n, err := h.tokens.RevokeAllForUser(ctx, id)
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}

// RecordRates lists the grades the user received.
func (h *UserHandler) RecordRates(c echo.Context) error {
	id, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	rates, err := h.rates.ListByMember(c.Request().Context(), id)
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, rates)
}
