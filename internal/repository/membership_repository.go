package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/grading-api/internal/model"
)

// MembershipRepo persists rows of `collection_members`.
type MembershipRepo struct{ db *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// Add enrols a user in a collection.  A second row for the same pair
// yields ErrConflict; an unknown user or collection yields ErrNotFound.
func (r *MembershipRepo) Add(ctx context.Context, m *model.Membership) error {
	now := utcNow()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO collection_members (user_id, collection_id, role, created_at) VALUES (?,?,?,?)",
		m.UserID, m.CollectionID, string(m.Role), now)
	switch {
	case err == nil:
		m.CreatedAt = now
		return nil
	case isDuplicate(err):
		return ErrConflict
	case isForeignKey(err):
		return ErrNotFound
	}
	return err
}

// Get returns the membership of userID in collectionID.
func (r *MembershipRepo) Get(ctx context.Context, userID, collectionID uint64) (model.Membership, error) {
	var (
		m    model.Membership
		role string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, collection_id, role, created_at FROM collection_members WHERE user_id = ? AND collection_id = ?",
		userID, collectionID).Scan(&m.UserID, &m.CollectionID, &role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Membership{}, ErrNotFound
	}
	m.Role = model.Role(role)
	return m, err
}

// Remove deletes a single membership.
func (r *MembershipRepo) Remove(ctx context.Context, userID, collectionID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM collection_members WHERE user_id = ? AND collection_id = ?",
		userID, collectionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ManagedCollectionIDs returns the ids of collections where userID holds
// OWNER or ADMIN.
func (r *MembershipRepo) ManagedCollectionIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT collection_id FROM collection_members WHERE user_id = ? AND role IN (?, ?) ORDER BY collection_id",
		userID, string(model.RoleOwner), string(model.RoleAdmin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
