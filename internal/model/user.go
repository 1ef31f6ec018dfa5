package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// User represents a row in the `users` table.  Users are created on their
// first login or by an administrator and carry an optional profile.
type User struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Social    *Social   `json:"social"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Social holds the public profile links of a user.  It is persisted as a
// JSON document in users.social.
type Social struct {
	Facebook string `json:"facebook,omitempty" validate:"omitempty,max=255"`
	Twitter  string `json:"twitter,omitempty" validate:"omitempty,max=255"`
	Github   string `json:"github,omitempty" validate:"omitempty,max=255"`
	Website  string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Tiktok   string `json:"tiktok,omitempty" validate:"omitempty,max=255"`
}

// Value implements driver.Valuer.
func (s *Social) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.  MySQL returns JSON columns as []byte while
// SQLite returns TEXT as string.
func (s *Social) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Social{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return errors.New("model: unsupported social column type")
}
