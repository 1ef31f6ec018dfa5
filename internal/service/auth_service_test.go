package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/grading-api/internal/database/dbtest"
	"github.com/iliyamo/grading-api/internal/metrics"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
	"github.com/iliyamo/grading-api/internal/utils"
)

const testSecret = "test-secret"

type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *captureNotifier) SendEmailToken(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[email] = token
	return nil
}

func (n *captureNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

type countingRecorder struct {
	metrics.Nop
	mu     sync.Mutex
	events map[string]int
}

func (r *countingRecorder) RecordAuthEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string]int{}
	}
	r.events[event]++
}

func (r *countingRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[event]
}

type env struct {
	db          *sql.DB
	svc         *AuthService
	notifier    *captureNotifier
	users       *repository.UserRepo
	tokens      *repository.TokenRepo
	members     *repository.MembershipRepo
	collections *repository.CollectionRepo
	metrics     *countingRecorder
}

func newEnv(t *testing.T) env {
	db := dbtest.Open(t)
	e := env{
		db:          db,
		notifier:    &captureNotifier{},
		users:       repository.NewUserRepo(db),
		tokens:      repository.NewTokenRepo(db),
		members:     repository.NewMembershipRepo(db),
		collections: repository.NewCollectionRepo(db),
		metrics:     &countingRecorder{},
	}
	e.svc = NewAuthService(e.users, e.tokens, e.members, e.notifier,
		AuthConfig{Secret: testSecret, EmailTokenTTL: 10 * time.Minute, APITokenTTL: time.Hour},
		e.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return e
}

func (e env) login(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.svc.Login(ctx, email))
	code := e.notifier.last(repository.NormalizeEmail(email))
	require.NotEmpty(t, code)
	bearer, err := e.svc.Authenticate(ctx, email, code)
	require.NoError(t, err)
	return bearer
}

func TestLoginCreatesUserAndSendsCode(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.svc.Login(context.Background(), " New@Example.com"))

	u, err := e.users.GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	code := e.notifier.last("new@example.com")
	assert.Len(t, code, 8)
	assert.Equal(t, 1, e.metrics.count(metrics.EventLoginIssued))
}

func TestAuthenticateSucceedsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Login(ctx, "a@x.com"))
	code := e.notifier.last("a@x.com")

	bearer, err := e.svc.Authenticate(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, bearer)

	_, err = e.svc.Authenticate(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	creds, err := e.svc.Resolve(ctx, bearer)
	require.NoError(t, err)
	u, err := e.users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, creds.UserID)
	assert.False(t, creds.IsAdmin)
	assert.Empty(t, creds.OwnerOf)
}

func TestAuthenticateRejectsOtherUsersCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Login(ctx, "a@x.com"))
	code := e.notifier.last("a@x.com")
	_, err := e.users.FindOrCreateByEmail(ctx, "b@x.com")
	require.NoError(t, err)

	_, err = e.svc.Authenticate(ctx, "b@x.com", code)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// The code is still usable by its owner.
	_, err = e.svc.Authenticate(ctx, "A@x.com", code)
	assert.NoError(t, err)
}

func TestAuthenticateRejectsUnknownAndExpiredCodes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Authenticate(ctx, "a@x.com", "12345678")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	u, err := e.users.FindOrCreateByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = e.tokens.CreateEmailToken(ctx, u.ID, utils.HashEmailToken("87654321"), time.Now().Add(-time.Second))
	require.NoError(t, err)

	_, err = e.svc.Authenticate(ctx, "a@x.com", "87654321")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 2, e.metrics.count(metrics.EventAuthenticateDenied))
}

func TestResolveRejectsBadTokens(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, err := e.users.FindOrCreateByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	emailID, err := e.tokens.CreateEmailToken(ctx, u.ID, "d1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	expiredID, err := e.tokens.Redeem(ctx, emailID, u.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	emailID2, err := e.tokens.CreateEmailToken(ctx, u.ID, "d2", time.Now().Add(time.Minute))
	require.NoError(t, err)

	sign := func(id uint64) string {
		s, err := utils.SignAPIToken(testSecret, id)
		require.NoError(t, err)
		return s
	}
	otherKey, err := utils.SignAPIToken("other-secret", emailID2)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": otherKey,
		"missing row":  sign(9999),
		"expired":      sign(expiredID),
		"email token":  sign(emailID2),
	}
	for name, bearer := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.Resolve(ctx, bearer)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestResolveRejectsRevokedToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bearer := e.login(t, "a@x.com")
	creds, err := e.svc.Resolve(ctx, bearer)
	require.NoError(t, err)

	_, err = e.tokens.RevokeAllForUser(ctx, creds.UserID)
	require.NoError(t, err)

	_, err = e.svc.Resolve(ctx, bearer)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveReportsAdminAndManagedCollections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.users.PromoteAdmin(ctx, "boss@x.com")
	require.NoError(t, err)
	bearer := e.login(t, "boss@x.com")

	creds, err := e.svc.Resolve(ctx, bearer)
	require.NoError(t, err)
	assert.True(t, creds.IsAdmin)

	col := model.Collection{Name: "Algebra", Details: "Fall"}
	require.NoError(t, e.collections.Create(ctx, &col, creds.UserID))

	// Credentials resolved before the collection existed do not list it.
	assert.False(t, creds.Owns(col.ID))

	fresh, err := e.svc.Resolve(ctx, bearer)
	require.NoError(t, err)
	assert.True(t, fresh.Owns(col.ID))
}

type failingTokens struct{ TokenStore }

func (failingTokens) GetWithOwner(context.Context, uint64) (model.Token, bool, error) {
	return model.Token{}, false, errors.New("database is down")
}

func TestResolveStoreFailureIsUnauthenticated(t *testing.T) {
	svc := NewAuthService(nil, failingTokens{}, nil, nil,
		AuthConfig{Secret: testSecret}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	bearer, err := utils.SignAPIToken(testSecret, 1)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), bearer)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
