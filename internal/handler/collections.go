package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

// CollectionHandler serves /collections.
type CollectionHandler struct {
	collections *repository.CollectionRepo
	records     *repository.RecordRepo
}

func NewCollectionHandler(collections *repository.CollectionRepo, records *repository.RecordRepo) *CollectionHandler {
	return &CollectionHandler{collections: collections, records: records}
}

type createCollectionReq struct {
	Name    string `json:"name" validate:"required,max=255"`
	Details string `json:"details" validate:"required,max=4000"`
}

type updateCollectionReq struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Details *string `json:"details" validate:"omitempty,max=4000"`
}

// List returns every collection.
func (h *CollectionHandler) List(c echo.Context) error {
	cols, err := h.collections.List(c.Request().Context())
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, cols)
}

// Create adds a collection and makes the caller its OWNER.  The caller's
// credentials on this request do not change; the new ownership is visible
// from their next request on.
func (h *CollectionHandler) Create(c echo.Context) error {
	var req createCollectionReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cred, ok := middleware.Credentials(c)
	if !ok {
		return errUnauthenticated()
	}
	col := model.Collection{Name: sanitize(req.Name), Details: sanitize(req.Details)}
	if col.Name == "" {
		return errValidation(map[string]string{"name": "is required"})
	}
	if err := h.collections.Create(c.Request().Context(), &col, cred.UserID); err != nil {
		return storeError(err, "collection")
	}
	return c.JSON(http.StatusCreated, col)
}

// Get returns a collection with its records.
func (h *CollectionHandler) Get(c echo.Context) error {
	id, err := middleware.PathID(c, "collectionId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	col, err := h.collections.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "collection")
	}
	recs, err := h.records.ListByCollection(ctx, id)
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, model.CollectionWithRecords{Collection: col, Records: recs})
}

// Update changes name and/or details.
func (h *CollectionHandler) Update(c echo.Context) error {
	id, err := middleware.PathID(c, "collectionId")
	if err != nil {
		return err
	}
	var req updateCollectionReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	col, err := h.collections.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "collection")
	}
	if req.Name != nil {
		col.Name = sanitize(*req.Name)
	}
	if req.Details != nil {
		col.Details = sanitize(*req.Details)
	}
	if col.Name == "" {
		return errValidation(map[string]string{"name": "is required"})
	}
	if err := h.collections.Update(ctx, &col); err != nil {
		return storeError(err, "collection")
	}
	return c.JSON(http.StatusOK, col)
}

// Delete removes a collection with its records, grades and memberships.
func (h *CollectionHandler) Delete(c echo.Context) error {
	id, err := middleware.PathID(c, "collectionId")
	if err != nil {
		return err
	}
	if err := h.collections.Delete(c.Request().Context(), id); err != nil {
		return storeError(err, "collection")
	}
	return c.NoContent(http.StatusNoContent)
}
