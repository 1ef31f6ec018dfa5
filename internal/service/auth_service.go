// Package service holds the login flow and the bearer token resolver.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/grading-api/internal/mailer"
	"github.com/iliyamo/grading-api/internal/metrics"
	"github.com/iliyamo/grading-api/internal/model"
	"github.com/iliyamo/grading-api/internal/repository"
	"github.com/iliyamo/grading-api/internal/utils"
)

// ErrUnauthenticated covers every rejected login or bearer token.  The
// reason is logged, never returned to the client.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserStore is the part of the user repository the login flow needs.
type UserStore interface {
	FindOrCreateByEmail(ctx context.Context, email string) (model.User, error)
}

// TokenStore persists email and API tokens.
type TokenStore interface {
	CreateEmailToken(ctx context.Context, userID uint64, hash string, exp time.Time) (uint64, error)
	FindEmailToken(ctx context.Context, hash string) (model.Token, string, error)
	Redeem(ctx context.Context, emailTokenID, userID uint64, apiExp time.Time) (uint64, error)
	GetWithOwner(ctx context.Context, id uint64) (model.Token, bool, error)
}

// MembershipStore answers which collections a user manages.
type MembershipStore interface {
	ManagedCollectionIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

// AuthConfig carries the signing secret and token lifetimes.
type AuthConfig struct {
	Secret        string
	EmailTokenTTL time.Duration
	APITokenTTL   time.Duration
}

// AuthService implements the two step login (email token, then API token)
// and resolves bearer tokens into request credentials.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	members  MembershipStore
	notifier mailer.Notifier
	cfg      AuthConfig
	metrics  metrics.Recorder
	log      *slog.Logger
}

func NewAuthService(users UserStore, tokens TokenStore, members MembershipStore, notifier mailer.Notifier,
	cfg AuthConfig, rec metrics.Recorder, log *slog.Logger) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		members:  members,
		notifier: notifier,
		cfg:      cfg,
		metrics:  rec,
		log:      log,
	}
}

// Login finds or creates the user for email, stores a fresh email token and
// sends it through the notifier.  The result does not reveal whether the
// account existed before.
func (s *AuthService) Login(ctx context.Context, email string) error {
	email = repository.NormalizeEmail(email)
	u, err := s.users.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find or create user: %w", err)
	}
	code, err := utils.NewEmailToken()
	if err != nil {
		return fmt.Errorf("generate email token: %w", err)
	}
	exp := time.Now().UTC().Add(s.cfg.EmailTokenTTL)
	if _, err := s.tokens.CreateEmailToken(ctx, u.ID, utils.HashEmailToken(code), exp); err != nil {
		return fmt.Errorf("store email token: %w", err)
	}
	if err := s.notifier.SendEmailToken(ctx, u.Email, code); err != nil {
		return fmt.Errorf("send email token: %w", err)
	}
	s.metrics.RecordAuthEvent(metrics.EventLoginIssued)
	return nil
}

// Authenticate redeems an email token for a signed bearer token.  Unknown,
// expired, consumed and mismatched tokens all yield ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, email, code string) (string, error) {
	t, owner, err := s.tokens.FindEmailToken(ctx, utils.HashEmailToken(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", s.deny(ctx, "unknown email token")
		}
		return "", fmt.Errorf("find email token: %w", err)
	}
	now := time.Now().UTC()
	switch {
	case !t.Valid:
		return "", s.deny(ctx, "email token already used")
	case t.Expired(now):
		return "", s.deny(ctx, "email token expired")
	case owner != repository.NormalizeEmail(email):
		return "", s.deny(ctx, "email token does not belong to email")
	}

	apiID, err := s.tokens.Redeem(ctx, t.ID, t.UserID, now.Add(s.cfg.APITokenTTL))
	if err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			return "", s.deny(ctx, "email token redeemed concurrently")
		}
		return "", fmt.Errorf("redeem email token: %w", err)
	}
	signed, err := utils.SignAPIToken(s.cfg.Secret, apiID)
	if err != nil {
		return "", fmt.Errorf("sign api token: %w", err)
	}
	s.metrics.RecordAuthEvent(metrics.EventAuthenticateOK)
	return signed, nil
}

func (s *AuthService) deny(ctx context.Context, reason string) error {
	s.log.InfoContext(ctx, "authenticate denied", slog.String("reason", reason))
	s.metrics.RecordAuthEvent(metrics.EventAuthenticateDenied)
	return ErrUnauthenticated
}

// Resolve turns a bearer token into the caller's credentials.  It reads
// the store on every call.  Store failures are logged and reported as
// ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, bearer string) (model.AuthCredentials, error) {
	tokenID, err := utils.ParseAPIToken(s.cfg.Secret, bearer)
	if err != nil {
		return s.reject(ctx, "bad bearer token", nil)
	}
	t, isAdmin, err := s.tokens.GetWithOwner(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.reject(ctx, "token not found", nil)
		}
		return s.reject(ctx, "token lookup failed", err)
	}
	switch {
	case t.Type != model.TokenTypeAPI:
		return s.reject(ctx, "not an api token", nil)
	case !t.Valid:
		return s.reject(ctx, "token revoked", nil)
	case t.Expired(time.Now().UTC()):
		return s.reject(ctx, "token expired", nil)
	}
	owned, err := s.members.ManagedCollectionIDs(ctx, t.UserID)
	if err != nil {
		return s.reject(ctx, "membership lookup failed", err)
	}
	return model.AuthCredentials{
		TokenID: t.ID,
		UserID:  t.UserID,
		IsAdmin: isAdmin,
		OwnerOf: owned,
	}, nil
}

func (s *AuthService) reject(ctx context.Context, reason string, cause error) (model.AuthCredentials, error) {
	s.metrics.RecordAuthEvent(metrics.EventCredentialRejected)
	if cause != nil {
		s.log.ErrorContext(ctx, "credential resolution failed", slog.String("reason", reason), slog.Any("err", cause))
	} else {
		s.log.DebugContext(ctx, "credential rejected", slog.String("reason", reason))
	}
	return model.AuthCredentials{}, ErrUnauthenticated
}
