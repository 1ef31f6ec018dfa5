package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

// UserCollectionHandler serves /users/:userId/collections.
type UserCollectionHandler struct {
	collections *repository.CollectionRepo
	members     *repository.MembershipRepo
}

func NewUserCollectionHandler(collections *repository.CollectionRepo, members *repository.MembershipRepo) *UserCollectionHandler {
	return &UserCollectionHandler{collections: collections, members: members}
}

type enrolReq struct {
	CollectionID uint64     `json:"collectionId" validate:"required"`
	Role         model.Role `json:"role" validate:"required,oneof=OWNER ADMIN VIEWER MEMBER"`
}

// List returns the collections the user belongs to.
func (h *UserCollectionHandler) List(c echo.Context) error {
	userID, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	cols, err := h.collections.ListByMember(c.Request().Context(), userID)
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, cols)
}

// Create enrols the user in a collection.  Without admin rights a caller
// can only take a managing role in a collection they already manage.
func (h *UserCollectionHandler) Create(c echo.Context) error {
	userID, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	var req enrolReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cred, ok := middleware.Credentials(c)
	if !ok {
		return errUnauthenticated()
	}
	if req.Role.Manages() && !middleware.CanManageCollection(cred, req.CollectionID) {
		return errForbidden()
	}
	m := model.Membership{UserID: userID, CollectionID: req.CollectionID, Role: req.Role}
	if err := h.members.Add(c.Request().Context(), &m); err != nil {
		return storeError(err, "membership")
	}
	return c.JSON(http.StatusCreated, m)
}

// Delete removes the user from a collection.
func (h *UserCollectionHandler) Delete(c echo.Context) error {
	userID, err := middleware.PathID(c, "userId")
	if err != nil {
		return err
	}
	collectionID, err := middleware.PathID(c, "collectionId")
	if err != nil {
		return err
	}
	if err := h.members.Remove(c.Request().Context(), userID, collectionID); err != nil {
		return storeError(err, "membership")
	}
	return c.NoContent(http.StatusNoContent)
}
