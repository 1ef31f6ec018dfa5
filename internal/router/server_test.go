package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/grading-api/internal/config"
	"github.com/iliyamo/grading-api/internal/database/dbtest"
	"github.com/iliyamo/grading-api/internal/repository"
	"github.com/iliyamo/grading-api/internal/service"
)

type inbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (i *inbox) SendEmailToken(_ context.Context, email, token string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.last == nil {
		i.last = map[string]string{}
	}
	i.last[email] = token
	return nil
}

func (i *inbox) code(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last[email]
}

type app struct {
	e     *echo.Echo
	inbox *inbox
	users *repository.UserRepo
}

func newApp(t *testing.T) app {
	db := dbtest.Open(t)
	in := &inbox{}
	e := New(Options{
		DB:       db,
		Notifier: in,
		Auth: service.AuthConfig{
			Secret:        "router-test-secret",
			EmailTokenTTL: 10 * time.Minute,
			APITokenTTL:   time.Hour,
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Registry:  prometheus.NewRegistry(),
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return app{e: e, inbox: in, users: repository.NewUserRepo(db)}
}

func (a app) call(method, target, bearer, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a app) signIn(t *testing.T, email string) string {
	t.Helper()
	rec := a.call(http.MethodPost, "/login", "", `{"email":"`+email+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := a.inbox.code(email)
	require.Len(t, code, 8)

	rec = a.call(http.MethodPost, "/authenticate", "", `{"email":"`+email+`","emailToken":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bearer := rec.Header().Get(echo.HeaderAuthorization)
	require.NotEmpty(t, bearer)
	return bearer
}

type profile struct {
	ID      uint64   `json:"id"`
	Email   string   `json:"email"`
	IsAdmin bool     `json:"isAdmin"`
	OwnerOf []uint64 `json:"ownerOf"`
}

func (a app) profile(t *testing.T, bearer string) profile {
	t.Helper()
	rec := a.call(http.MethodGet, "/profile", bearer, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestStatusAndMetrics(t *testing.T) {
	a := newApp(t)
	rec := a.call(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"up":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = a.call(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `grading_http_requests_total{method="GET",route="/",status="200"} 1`)
}

func TestLoginFlow(t *testing.T) {
	a := newApp(t)

	rec := a.call(http.MethodPost, "/login", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bearer := a.signIn(t, "student@x.com")
	p := a.profile(t, bearer)
	assert.Equal(t, "student@x.com", p.Email)
	assert.False(t, p.IsAdmin)
	assert.Empty(t, p.OwnerOf)

	// The emailed code is spent.
	code := a.inbox.code("student@x.com")
	rec = a.call(http.MethodPost, "/authenticate", "", `{"email":"student@x.com","emailToken":"`+code+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodGet, "/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.call(http.MethodGet, "/profile", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnershipVisibleFromNextRequest(t *testing.T) {
	a := newApp(t)
	bearer := a.signIn(t, "instructor@x.com")

	rec := a.call(http.MethodPost, "/collections", bearer, `{"name":"Algebra","details":"Fall term"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var col struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &col))

	assert.Equal(t, []uint64{col.ID}, a.profile(t, bearer).OwnerOf)

	target := "/collections/" + strconv.FormatUint(col.ID, 10)
	rec = a.call(http.MethodPut, target, bearer, `{"name":"Algebra II"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Algebra II"`)

	other := a.signIn(t, "other@x.com")
	rec = a.call(http.MethodPut, target, other, `{"name":"Mine now"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.call(http.MethodDelete, target, other, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGradingFlow(t *testing.T) {
	a := newApp(t)
	instructor := a.signIn(t, "instructor@x.com")
	student := a.signIn(t, "student@x.com")
	studentID := a.profile(t, student).ID

	rec := a.call(http.MethodPost, "/collections", instructor, `{"name":"Algebra","details":"Fall"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var col struct{ ID uint64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &col))
	colPath := "/collections/" + strconv.FormatUint(col.ID, 10)

	rec = a.call(http.MethodPost, colPath+"/records", instructor, `{"name":"Quiz 1","date":"2024-03-01T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var record struct{ ID uint64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	ratesPath := "/collections/records/" + strconv.FormatUint(record.ID, 10) + "/record-rates"

	rec = a.call(http.MethodPost, ratesPath, student, `{"point":1000,"memberId":`+strconv.FormatUint(studentID, 10)+`}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.call(http.MethodPost, ratesPath, instructor, `{"point":1500,"memberId":`+strconv.FormatUint(studentID, 10)+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(http.MethodPost, ratesPath, instructor, `{"point":870,"memberId":`+strconv.FormatUint(studentID, 10)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rr struct{ ID uint64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rr))

	ratePath := "/collections/records/record-rates/" + strconv.FormatUint(rr.ID, 10)
	rec = a.call(http.MethodPut, ratePath, student, `{"point":1000}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.call(http.MethodPut, ratePath, instructor, `{"point":900}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.call(http.MethodGet, "/users/"+strconv.FormatUint(studentID, 10)+"/record-rates", student, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"point":900`)

	rec = a.call(http.MethodDelete, colPath, instructor, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.call(http.MethodGet, colPath, instructor, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	a := newApp(t)
	_, err := a.users.PromoteAdmin(context.Background(), "boss@x.com")
	require.NoError(t, err)
	boss := a.signIn(t, "boss@x.com")
	student := a.signIn(t, "student@x.com")
	studentID := strconv.FormatUint(a.profile(t, student).ID, 10)

	rec := a.call(http.MethodGet, "/users", student, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.call(http.MethodGet, "/users", boss, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.call(http.MethodGet, "/users/abc", student, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(http.MethodDelete, "/users/"+studentID+"/tokens", boss, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.call(http.MethodGet, "/profile", student, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
