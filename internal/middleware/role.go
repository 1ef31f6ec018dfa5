package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/metrics"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

// Predicate names, used as metric labels.
const (
	PredicateAdmin        = "isAdmin"
	PredicateSelfOrAdmin  = "isRequestedUserOrAdmin"
	PredicateCollection   = "isOwnerOfCollectionOrAdmin"
	PredicateRecord       = "isOwnerOfRecordOrAdmin"
	PredicateRecordGrader = "isGraderOfRecordRateOrAdmin"
)

const (
	errForbiddenMessage    = "forbidden"
	errAuthRequiredMessage = "authentication required"
)

// RecordLookup resolves a record to its collection.
type RecordLookup interface {
	CollectionIDOf(ctx context.Context, recordID uint64) (uint64, error)
}

// RecordRateLookup resolves a grade.
type RecordRateLookup interface {
	GetByID(ctx context.Context, id uint64) (model.RecordRate, error)
}

// Guard builds the authorization predicates that sit between BearerAuth and
// the handlers.  Every predicate lets administrators through before looking
// at path parameters.  A target that cannot be found is reported as 403 so
// callers cannot probe for existence; a store failure is logged and
// reported as 500.
type Guard struct {
	records RecordLookup
	rates   RecordRateLookup
	metrics metrics.Recorder
	log     *slog.Logger
}

func NewGuard(records RecordLookup, rates RecordRateLookup, rec metrics.Recorder, log *slog.Logger) *Guard {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{records: records, rates: rates, metrics: rec, log: log}
}

// check is a single predicate body.  It returns whether the caller may
// proceed; a non-nil error aborts the request as is.
type check func(c echo.Context, cred model.AuthCredentials) (bool, error)

func (g *Guard) predicate(name string, fn check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred, ok := Credentials(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errAuthRequiredMessage)
			}
			if cred.IsAdmin {
				return next(c)
			}
			allowed, err := fn(c, cred)
			if err != nil {
				return err
			}
			if !allowed {
				g.metrics.RecordAuthzDenied(name)
				return echo.NewHTTPError(http.StatusForbidden, errForbiddenMessage)
			}
			return next(c)
		}
	}
}

// storeFailure logs err and returns the 500 sent to the client.
func (g *Guard) storeFailure(c echo.Context, name string, err error) error {
	g.log.ErrorContext(c.Request().Context(), "authorization lookup failed",
		slog.String("predicate", name), slog.Any("err", err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// IsAdmin allows administrators only.
func (g *Guard) IsAdmin() echo.MiddlewareFunc {
	return g.predicate(PredicateAdmin, func(echo.Context, model.AuthCredentials) (bool, error) {
		return false, nil
	})
}

// IsRequestedUserOrAdmin allows the user named by the path parameter.
func (g *Guard) IsRequestedUserOrAdmin(param string) echo.MiddlewareFunc {
	return g.predicate(PredicateSelfOrAdmin, func(c echo.Context, cred model.AuthCredentials) (bool, error) {
		id, err := PathID(c, param)
		if err != nil {
			return false, err
		}
		return CanActAsUser(cred, id), nil
	})
}

// IsOwnerOfCollectionOrAdmin allows managers of the collection named by
// the path parameter.
func (g *Guard) IsOwnerOfCollectionOrAdmin(param string) echo.MiddlewareFunc {
	return g.predicate(PredicateCollection, func(c echo.Context, cred model.AuthCredentials) (bool, error) {
		id, err := PathID(c, param)
		if err != nil {
			return false, err
		}
		return CanManageCollection(cred, id), nil
	})
}

// IsOwnerOfRecordOrAdmin allows managers of the collection that holds the
// record named by the path parameter.
func (g *Guard) IsOwnerOfRecordOrAdmin(param string) echo.MiddlewareFunc {
	return g.predicate(PredicateRecord, func(c echo.Context, cred model.AuthCredentials) (bool, error) {
		id, err := PathID(c, param)
		if err != nil {
			return false, err
		}
		collectionID, err := g.records.CollectionIDOf(c.Request().Context(), id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return false, nil
		case err != nil:
			return false, g.storeFailure(c, PredicateRecord, err)
		}
		return CanManageCollection(cred, collectionID), nil
	})
}

// IsGraderOfRecordRateOrAdmin allows the grader of the grade named by the
// path parameter.
func (g *Guard) IsGraderOfRecordRateOrAdmin(param string) echo.MiddlewareFunc {
	return g.predicate(PredicateRecordGrader, func(c echo.Context, cred model.AuthCredentials) (bool, error) {
		id, err := PathID(c, param)
		if err != nil {
			return false, err
		}
		rr, err := g.rates.GetByID(c.Request().Context(), id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return false, nil
		case err != nil:
			return false, g.storeFailure(c, PredicateRecordGrader, err)
		}
		return cred.IsAdmin || rr.GraderID == cred.UserID, nil
	})
}

// CanActAsUser reports whether cred may act on behalf of userID.
func CanActAsUser(cred model.AuthCredentials, userID uint64) bool {
	return cred.IsAdmin || cred.UserID == userID
}

// CanManageCollection reports whether cred may change collectionID, its
// records and their grades.  It only looks at the snapshot in cred.
func CanManageCollection(cred model.AuthCredentials, collectionID uint64) bool {
	return cred.IsAdmin || cred.Owns(collectionID)
}
