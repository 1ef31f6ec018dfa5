package model

import "time"

// Record is a single assessment belonging to exactly one collection.
type Record struct {
	ID           uint64    `json:"id"`
	CollectionID uint64    `json:"collectionId"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Point bounds for a RecordRate.
const (
	MinPoint = 0
	MaxPoint = 1000
)

// RecordRate is the grade a grader gave a member on a record.  MemberID and
// GraderID never change after creation; only Point is updatable.
type RecordRate struct {
	ID        uint64    `json:"id"`
	RecordID  uint64    `json:"recordId"`
	MemberID  uint64    `json:"memberId"`
	GraderID  uint64    `json:"graderId"`
	Point     int       `json:"point"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
