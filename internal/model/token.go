package model

import "time"

// TokenType distinguishes emailed login tokens from API tokens.
type TokenType string

const (
	TokenTypeEmail TokenType = "EMAIL"
	TokenTypeAPI   TokenType = "API"
)

// Token models a row in the `tokens` table.  EMAIL tokens carry the digest
// of the code that was mailed to the user and are redeemed once.  API
// tokens carry no secret: the signed bearer token only references the row
// by id, so deleting or invalidating the row revokes the bearer token.
//
// Fields:
//
//	EmailTokenHash – blake2b-256 hex digest of the emailed code (EMAIL only).
//	Valid          – cleared when an EMAIL token is redeemed or a token is revoked.
//	Expiration     – UTC instant after which the token is rejected.
type Token struct {
	ID             uint64
	Type           TokenType
	EmailTokenHash *string
	Valid          bool
	Expiration     time.Time
	UserID         uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the token is past its expiration at now.
func (t Token) Expired(now time.Time) bool { return t.Expiration.Before(now) }
