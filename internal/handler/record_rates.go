package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

// RecordRateHandler serves grades under /collections/records.
type RecordRateHandler struct {
	rates *repository.RecordRateRepo
}

func NewRecordRateHandler(rates *repository.RecordRateRepo) *RecordRateHandler {
	return &RecordRateHandler{rates: rates}
}

type createRecordRateReq struct {
	Point    *int    `json:"point" validate:"required,min=0,max=1000"`
	MemberID uint64  `json:"memberId" validate:"required"`
	GraderID *uint64 `json:"graderId" validate:"omitempty,gt=0"`
}

// memberId and graderId are fixed once a grade exists; sending them is an
// error rather than being silently ignored.
type updateRecordRateReq struct {
	Point    *int    `json:"point" validate:"required,min=0,max=1000"`
	MemberID *uint64 `json:"memberId" validate:"isdefault"`
	GraderID *uint64 `json:"graderId" validate:"isdefault"`
}

// List returns the grades of a record.
func (h *RecordRateHandler) List(c echo.Context) error {
	recordID, err := middleware.PathID(c, "recordId")
	if err != nil {
		return err
	}
	rates, err := h.rates.ListByRecord(c.Request().Context(), recordID)
	if err != nil {
		return errInternal(err)
	}
	return c.JSON(http.StatusOK, rates)
}

// Create grades a member on the record in the path.  The grader defaults
// to the caller; only administrators may record a grade for someone else.
func (h *RecordRateHandler) Create(c echo.Context) error {
	recordID, err := middleware.PathID(c, "recordId")
	if err != nil {
		return err
	}
	var req createRecordRateReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cred, ok := middleware.Credentials(c)
	if !ok {
		return errUnauthenticated()
	}
	grader := cred.UserID
	if req.GraderID != nil {
		if *req.GraderID != cred.UserID && !cred.IsAdmin {
			return errForbidden()
		}
		grader = *req.GraderID
	}
	rr := model.RecordRate{
		RecordID: recordID,
		MemberID: req.MemberID,
		GraderID: grader,
		Point:    *req.Point,
	}
	if err := h.rates.Create(c.Request().Context(), &rr); err != nil {
		return storeError(err, "record or user")
	}
	return c.JSON(http.StatusCreated, rr)
}

// Update changes the point of a grade.  Last write wins.
func (h *RecordRateHandler) Update(c echo.Context) error {
	id, err := middleware.PathID(c, "recordRateId")
	if err != nil {
		return err
	}
	var req updateRecordRateReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rr, err := h.rates.UpdatePoint(c.Request().Context(), id, *req.Point)
	if err != nil {
		return storeError(err, "record rate")
	}
	return c.JSON(http.StatusOK, rr)
}

// Delete removes a grade.
func (h *RecordRateHandler) Delete(c echo.Context) error {
	id, err := middleware.PathID(c, "recordRateId")
	if err != nil {
		return err
	}
	if err := h.rates.Delete(c.Request().Context(), id); err != nil {
		return storeError(err, "record rate")
	}
	return c.NoContent(http.StatusNoContent)
}
