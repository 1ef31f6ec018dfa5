package model

import "time"

// Collection is a course: a named group of records managed by its members.
type Collection struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CollectionWithRecords is the detail view returned by GET /collections/:id.
type CollectionWithRecords struct {
	Collection
	Records []Record `json:"records"`
}

// Role is the part a user plays in a collection.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
	RoleMember Role = "MEMBER"
)

// Manages reports whether the role grants mutation rights over the
// collection's records and grades.
func (r Role) Manages() bool { return r == RoleOwner || r == RoleAdmin }

// Membership is a row of `collection_members`.  There is at most one row
// per (UserID, CollectionID).
type Membership struct {
	UserID       uint64    `json:"userId"`
	CollectionID uint64    `json:"collectionId"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
