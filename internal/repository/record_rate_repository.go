package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/grading-api/internal/model"
)

const recordRateColumns = "id, record_id, member_id, grader_id, point, created_at, updated_at"

// RecordRateRepo persists grades.  Member and grader are written once on
// insert; Update only ever touches point.
type RecordRateRepo struct{ db *sql.DB }

func NewRecordRateRepo(db *sql.DB) *RecordRateRepo { return &RecordRateRepo{db: db} }

func scanRecordRate(row rowScanner) (model.RecordRate, error) {
	var rr model.RecordRate
	err := row.Scan(&rr.ID, &rr.RecordID, &rr.MemberID, &rr.GraderID, &rr.Point, &rr.CreatedAt, &rr.UpdatedAt)
	return rr, err
}

func (r *RecordRateRepo) list(ctx context.Context, q string, arg uint64) ([]model.RecordRate, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RecordRate{}
	for rows.Next() {
		rr, err := scanRecordRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// Create inserts rr.  An unknown record, member or grader yields ErrNotFound.
func (r *RecordRateRepo) Create(ctx context.Context, rr *model.RecordRate) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO record_rates (record_id, member_id, grader_id, point, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		rr.RecordID, rr.MemberID, rr.GraderID, rr.Point, now, now)
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
	rr.ID = uint64(id)
	rr.CreatedAt, rr.UpdatedAt = now, now
	return nil
}

// GetByID fetches a single grade.
func (r *RecordRateRepo) GetByID(ctx context.Context, id uint64) (model.RecordRate, error) {
	rr, err := scanRecordRate(r.db.QueryRowContext(ctx,
		"SELECT "+recordRateColumns+" FROM record_rates WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RecordRate{}, ErrNotFound
	}
	return rr, err
}

// ListByRecord returns every grade given on a record.
func (r *RecordRateRepo) ListByRecord(ctx context.Context, recordID uint64) ([]model.RecordRate, error) {
	return r.list(ctx, "SELECT "+recordRateColumns+" FROM record_rates WHERE record_id = ? ORDER BY id", recordID)
}

// ListByMember returns every grade received by a user.
func (r *RecordRateRepo) ListByMember(ctx context.Context, memberID uint64) ([]model.RecordRate, error) {
	return r.list(ctx, "SELECT "+recordRateColumns+" FROM record_rates WHERE member_id = ? ORDER BY id", memberID)
}

// UpdatePoint changes the point of a grade.  Last write wins.
func (r *RecordRateRepo) UpdatePoint(ctx context.Context, id uint64, point int) (model.RecordRate, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE record_rates SET point = ?, updated_at = ? WHERE id = ?", point, utcNow(), id)
	if err != nil {
		return model.RecordRate{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.RecordRate{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a grade.
func (r *RecordRateRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM record_rates WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
