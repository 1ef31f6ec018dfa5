package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

// RecordHandler serves records under /collections.
type RecordHandler struct {
	records *repository.RecordRepo
}

func NewRecordHandler(records *repository.RecordRepo) *RecordHandler {
	return &RecordHandler{records: records}
}

type createRecordReq struct {
	Name string    `json:"name" validate:"required,max=255"`
	Date time.Time `json:"date" validate:"required"`
}

type updateRecordReq struct {
	Name *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Date *time.Time `json:"date"`
}

// Get returns one record.
func (h *RecordHandler) Get(c echo.Context) error {
	id, err := middleware.PathID(c, "recordId")
	if err != nil {
		return err
	}
	rec, err := h.records.GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "record")
	}
	return c.JSON(http.StatusOK, rec)
}

// Create adds a record to the collection in the path.
func (h *RecordHandler) Create(c echo.Context) error {
	collectionID, err := middleware.PathID(c, "collectionId")
	if err != nil {
		return err
	}
	var req createRecordReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rec := model.Record{CollectionID: collectionID, Name: sanitize(req.Name), Date: req.Date}
	if rec.Name == "" {
		return errValidation(map[string]string{"name": "is required"})
	}
	if err := h.records.Create(c.Request().Context(), &rec); err != nil {
		return storeError(err, "collection")
	}
	return c.JSON(http.StatusCreated, rec)
}

// Update changes name and/or date of a record.
func (h *RecordHandler) Update(c echo.Context) error {
	id, err := middleware.PathID(c, "recordId")
	if err != nil {
		return err
	}
	var req updateRecordReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	rec, err := h.records.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "record")
	}
	if req.Name != nil {
		rec.Name = sanitize(*req.Name)
	}
	if req.Date != nil {
		rec.Date = *req.Date
	}
	if rec.Name == "" {
		return errValidation(map[string]string{"name": "is required"})
	}
	if err := h.records.Update(ctx, &rec); err != nil {
		return storeError(err, "record")
	}
	return c.JSON(http.StatusOK, rec)
}

// Delete removes a record and its grades.
func (h *RecordHandler) Delete(c echo.Context) error {
	id, err := middleware.PathID(c, "recordId")
	if err != nil {
		return err
	}
	if err := h.records.Delete(c.Request().Context(), id); err != nil {
		return storeError(err, "record")
	}
	return c.NoContent(http.StatusNoContent)
}
