package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
)

type stubRecords map[uint64]uint64

func (s stubRecords) CollectionIDOf(_ context.Context, id uint64) (uint64, error) {
	if id == 500 {
		return 0, errors.New("database is down")
	}
	cid, ok := s[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return cid, nil
}

type stubRates map[uint64]model.RecordRate

func (s stubRates) GetByID(_ context.Context, id uint64) (model.RecordRate, error) {
	rr, ok := s[id]
	if !ok {
		return model.RecordRate{}, repository.ErrNotFound
	}
	return rr, nil
}

func newGuard() *Guard {
	return NewGuard(
		stubRecords{1: 10, 2: 20},
		stubRates{7: {ID: 7, GraderID: 3}},
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// serve runs one request through mw with cred already resolved.  A nil
// cred leaves the request unauthenticated.
func serve(route, target string, cred *model.AuthCredentials, mw echo.MiddlewareFunc) int {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	setCred := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cred != nil {
				SetCredentials(c, *cred)
			}
			return next(c)
		}
	}
	e.GET(route, ok, setCred, mw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Code
}

func TestGuardPredicates(t *testing.T) {
	g := newGuard()
	admin := &model.AuthCredentials{UserID: 1, IsAdmin: true}
	owner := &model.AuthCredentials{UserID: 3, OwnerOf: []uint64{10}}
	stranger := &model.AuthCredentials{UserID: 4}

	cases := []struct {
		name   string
		route  string
		target string
		cred   *model.AuthCredentials
		mw     echo.MiddlewareFunc
		want   int
	}{
		{"admin only allows admin", "/users", "/users", admin, g.IsAdmin(), http.StatusOK},
		{"admin only denies others", "/users", "/users", owner, g.IsAdmin(), http.StatusForbidden},
		{"unauthenticated", "/users", "/users", nil, g.IsAdmin(), http.StatusUnauthorized},

		{"self", "/users/:id", "/users/3", owner, g.IsRequestedUserOrAdmin("id"), http.StatusOK},
		{"other user", "/users/:id", "/users/9", owner, g.IsRequestedUserOrAdmin("id"), http.StatusForbidden},
		{"bad user param", "/users/:id", "/users/abc", owner, g.IsRequestedUserOrAdmin("id"), http.StatusBadRequest},
		{"admin skips bad param", "/users/:id", "/users/abc", admin, g.IsRequestedUserOrAdmin("id"), http.StatusOK},

		{"collection owner", "/collections/:id", "/collections/10", owner, g.IsOwnerOfCollectionOrAdmin("id"), http.StatusOK},
		{"collection stranger", "/collections/:id", "/collections/10", stranger, g.IsOwnerOfCollectionOrAdmin("id"), http.StatusForbidden},
		{"collection zero id", "/collections/:id", "/collections/0", owner, g.IsOwnerOfCollectionOrAdmin("id"), http.StatusBadRequest},

		{"record owner", "/records/:id", "/records/1", owner, g.IsOwnerOfRecordOrAdmin("id"), http.StatusOK},
		{"record other collection", "/records/:id", "/records/2", owner, g.IsOwnerOfRecordOrAdmin("id"), http.StatusForbidden},
		{"record missing", "/records/:id", "/records/99", owner, g.IsOwnerOfRecordOrAdmin("id"), http.StatusForbidden},
		{"record store error", "/records/:id", "/records/500", owner, g.IsOwnerOfRecordOrAdmin("id"), http.StatusInternalServerError},
		{"record admin", "/records/:id", "/records/99", admin, g.IsOwnerOfRecordOrAdmin("id"), http.StatusOK},

		{"grader", "/rates/:id", "/rates/7", owner, g.IsGraderOfRecordRateOrAdmin("id"), http.StatusOK},
		{"not grader", "/rates/:id", "/rates/7", stranger, g.IsGraderOfRecordRateOrAdmin("id"), http.StatusForbidden},
		{"rate missing", "/rates/:id", "/rates/8", owner, g.IsGraderOfRecordRateOrAdmin("id"), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(tc.route, tc.target, tc.cred, tc.mw))
		})
	}
}

func TestCanManageCollectionUsesSnapshot(t *testing.T) {
	cred := model.AuthCredentials{UserID: 3, OwnerOf: []uint64{10}}
	assert.True(t, CanManageCollection(cred, 10))
	// A collection created after resolution is not in the snapshot.
	assert.False(t, CanManageCollection(cred, 11))
	assert.True(t, CanManageCollection(model.AuthCredentials{IsAdmin: true}, 11))

	assert.True(t, CanActAsUser(cred, 3))
	assert.False(t, CanActAsUser(cred, 4))
}
