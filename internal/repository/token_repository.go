package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/grading-api/internal/database"
	"github.com/iliyamo/grading-api/internal/model"
)

// ErrTokenConsumed is returned by Redeem when the email token was already
// exchanged, typically by a concurrent request.
var ErrTokenConsumed = errors.New("email token already redeemed")

const tokenColumns = "t.id, t.type, t.email_token_hash, t.valid, t.expiration, t.user_id, t.created_at, t.updated_at"

// TokenRepo persists email and API tokens.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func scanToken(row rowScanner, extra ...any) (model.Token, error) {
	var (
		t    model.Token
		typ  string
		hash sql.NullString
	)
	dest := append([]any{&t.ID, &typ, &hash, &t.Valid, &t.Expiration, &t.UserID, &t.CreatedAt, &t.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Token{}, err
	}
	t.Type = model.TokenType(typ)
	if hash.Valid {
		t.EmailTokenHash = &hash.String
	}
	return t, nil
}

// CreateEmailToken stores the digest of a freshly issued login code.
// A digest collision with an existing row yields ErrConflict.
func (r *TokenRepo) CreateEmailToken(ctx context.Context, userID uint64, hash string, exp time.Time) (uint64, error) {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tokens (type, email_token_hash, valid, expiration, user_id, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		string(model.TokenTypeEmail), hash, true, exp.UTC(), userID, now, now)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindEmailToken looks up an email token by digest and returns it together
// with its owner's email address.
func (r *TokenRepo) FindEmailToken(ctx context.Context, hash string) (model.Token, string, error) {
	var email string
	t, err := scanToken(r.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+", u.email FROM tokens t JOIN users u ON u.id = t.user_id WHERE t.email_token_hash = ? AND t.type = ? LIMIT 1",
		hash, string(model.TokenTypeEmail)), &email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Token{}, "", ErrNotFound
	}
	return t, email, err
}

// Redeem exchanges an email token for a new API token.  The API row is
// inserted and the email token invalidated in one transaction; the
// invalidation only matches a still valid row, so of two concurrent
// redemptions at most one commits and the other gets ErrTokenConsumed.
func (r *TokenRepo) Redeem(ctx context.Context, emailTokenID, userID uint64, apiExp time.Time) (uint64, error) {
	var apiID uint64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		now := utcNow()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO tokens (type, email_token_hash, valid, expiration, user_id, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
			string(model.TokenTypeAPI), nil, true, apiExp.UTC(), userID, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx,
			"UPDATE tokens SET valid = ?, updated_at = ? WHERE id = ? AND valid = ?",
			false, now, emailTokenID, true)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrTokenConsumed
		}
		apiID = uint64(id)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return apiID, nil
}

// GetWithOwner fetches a token by id along with the owner's admin flag.
func (r *TokenRepo) GetWithOwner(ctx context.Context, id uint64) (model.Token, bool, error) {
	var isAdmin bool
	t, err := scanToken(r.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+", u.is_admin FROM tokens t JOIN users u ON u.id = t.user_id WHERE t.id = ? LIMIT 1",
		id), &isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Token{}, false, ErrNotFound
	}
	return t, isAdmin, err
}

// RevokeAllForUser invalidates every token of the user and reports how
// many rows changed.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tokens SET valid = ?, updated_at = ? WHERE user_id = ? AND valid = ?",
		false, utcNow(), userID, true)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
