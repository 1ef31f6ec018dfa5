package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/grading-api/internal/database"
	"github.com/iliyamo/grading-api/internal/model"
)

const collectionColumns = "c.id, c.name, c.details, c.created_at, c.updated_at"

// CollectionRepo persists collections (courses).
type CollectionRepo struct{ db *sql.DB }

func NewCollectionRepo(db *sql.DB) *CollectionRepo { return &CollectionRepo{db: db} }

func scanCollection(row rowScanner) (model.Collection, error) {
	var c model.Collection
	err := row.Scan(&c.ID, &c.Name, &c.Details, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CollectionRepo) list(ctx context.Context, q string, args ...any) ([]model.Collection, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts c and enrols ownerID as its OWNER in the same transaction.
func (r *CollectionRepo) Create(ctx context.Context, c *model.Collection, ownerID uint64) error {
	now := utcNow()
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, details, created_at, updated_at) VALUES (?,?,?,?)",
			c.Name, c.Details, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collection_members (user_id, collection_id, role, created_at) VALUES (?,?,?,?)",
			ownerID, id, string(model.RoleOwner), now); err != nil {
			if isForeignKey(err) {
				return ErrNotFound
			}
			return err
		}
		c.ID = uint64(id)
		c.CreatedAt, c.UpdatedAt = now, now
		return nil
	})
}

// GetByID fetches a single collection.
func (r *CollectionRepo) GetByID(ctx context.Context, id uint64) (model.Collection, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx,
		"SELECT "+collectionColumns+" FROM collections c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Collection{}, ErrNotFound
	}
	return c, err
}

// List returns every collection ordered by id.
func (r *CollectionRepo) List(ctx context.Context) ([]model.Collection, error) {
	return r.list(ctx, "SELECT "+collectionColumns+" FROM collections c ORDER BY c.id")
}

// ListByMember returns the collections userID belongs to in any role.
func (r *CollectionRepo) ListByMember(ctx context.Context, userID uint64) ([]model.Collection, error) {
	return r.list(ctx,
		"SELECT "+collectionColumns+" FROM collections c JOIN collection_members m ON m.collection_id = c.id WHERE m.user_id = ? ORDER BY c.id",
		userID)
}

// Update writes name and details of c.
func (r *CollectionRepo) Update(ctx context.Context, c *model.Collection) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"UPDATE collections SET name = ?, details = ?, updated_at = ? WHERE id = ?",
		c.Name, c.Details, now, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

// Delete removes a collection with its grades, records and memberships.
// Either every row goes or none does.
func (r *CollectionRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		steps := []string{
			"DELETE FROM record_rates WHERE record_id IN (SELECT id FROM records WHERE collection_id = ?)",
			"DELETE FROM records WHERE collection_id = ?",
			"DELETE FROM collection_members WHERE collection_id = ?",
		}
		for _, q := range steps {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
