package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/grading-api/internal/database"
	"github.com/iliyamo/grading-api/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// utcNow is the timestamp written to created_at/updated_at columns.  Both
// drivers keep microsecond precision.
func utcNow() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// NormalizeEmail lower-cases and trims an address so lookups are stable.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

const userColumns = "id, email, first_name, last_name, social, is_admin, created_at, updated_at"

// UserRepo persists rows of the `users` table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u      model.User
		first  sql.NullString
		last   sql.NullString
		social model.Social
		raw    sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &first, &last, &raw, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	if first.Valid {
		u.FirstName = &first.String
	}
	if last.Valid {
		u.LastName = &last.String
	}
	if raw.Valid && raw.String != "" {
		if err := social.Scan(raw.String); err != nil {
			return model.User{}, err
		}
		u.Social = &social
	}
	return u, nil
}

// Create inserts u and fills in its ID and timestamps.  A taken email
// yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, social, is_admin, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.FirstName, u.LastName, u.Social, u.IsAdmin, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// FindOrCreateByEmail returns the user owning email, creating a bare
// account on first sight.  Two concurrent first logins for the same address
// both end up with the same row.
func (r *UserRepo) FindOrCreateByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return u, err
	}
	u = model.User{Email: email}
	if err := r.Create(ctx, &u); err != nil {
		if errors.Is(err, ErrConflict) {
			return r.GetByEmail(ctx, email)
		}
		return model.User{}, err
	}
	return u, nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes the mutable columns of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET email = ?, first_name = ?, last_name = ?, social = ?, is_admin = ?, updated_at = ? WHERE id = ?",
		u.Email, u.FirstName, u.LastName, u.Social, u.IsAdmin, now, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	u.UpdatedAt = now
	return nil
}

// Delete removes a user together with its memberships, tokens and every
// grade where the user is the member or the grader.  All rows go in one
// transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		steps := []string{
			"DELETE FROM collection_members WHERE user_id = ?",
			"DELETE FROM tokens WHERE user_id = ?",
			"DELETE FROM record_rates WHERE member_id = ? OR grader_id = ?",
		}
		for _, q := range steps {
			args := []any{id}
			if strings.Count(q, "?") == 2 {
				args = append(args, id)
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// PromoteAdmin makes the user owning email an administrator, creating the
// account first when needed.
func (r *UserRepo) PromoteAdmin(ctx context.Context, email string) (model.User, error) {
	u, err := r.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return model.User{}, err
	}
	if u.IsAdmin {
		return u, nil
	}
	u.IsAdmin = true
	if err := r.Update(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}
