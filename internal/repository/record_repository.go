package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/grading-api/internal/database"
	"github.com/iliyamo/grading-api/internal/model"
)

const recordColumns = "id, collection_id, name, date, created_at, updated_at"

// RecordRepo persists records (assessments).
type RecordRepo struct{ db *sql.DB }

func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{db: db} }

func scanRecord(row rowScanner) (model.Record, error) {
	var rec model.Record
	err := row.Scan(&rec.ID, &rec.CollectionID, &rec.Name, &rec.Date, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// Create inserts rec.  An unknown collection yields ErrNotFound.
func (r *RecordRepo) Create(ctx context.Context, rec *model.Record) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO records (collection_id, name, date, created_at, updated_at) VALUES (?,?,?,?,?)",
		rec.CollectionID, rec.Name, rec.Date.UTC(), now, now)
	if err != nil {
		if isForeignKey(err) {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	rec.CreatedAt, rec.UpdatedAt = now, now
	return nil
}

// GetByID fetches a single record.
func (r *RecordRepo) GetByID(ctx context.Context, id uint64) (model.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, ErrNotFound
	}
	return rec, err
}

// CollectionIDOf returns the collection a record belongs to.
func (r *RecordRepo) CollectionIDOf(ctx context.Context, id uint64) (uint64, error) {
	var cid uint64
	err := r.db.QueryRowContext(ctx, "SELECT collection_id FROM records WHERE id = ?", id).Scan(&cid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return cid, err
}

// ListByCollection returns the records of a collection ordered by date.
func (r *RecordRepo) ListByCollection(ctx context.Context, collectionID uint64) ([]model.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE collection_id = ? ORDER BY date, id", collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Update writes name and date of rec.
func (r *RecordRepo) Update(ctx context.Context, rec *model.Record) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"UPDATE records SET name = ?, date = ?, updated_at = ? WHERE id = ?",
		rec.Name, rec.Date.UTC(), now, rec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	rec.UpdatedAt = now
	return nil
}

// Delete removes a record and its grades in one transaction.
func (r *RecordRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM record_rates WHERE record_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
