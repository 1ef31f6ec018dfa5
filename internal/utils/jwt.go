package utils // package utils provides helpers for issuing and checking credentials

import (
	"errors"

	"github.com/golang-jwt/jwt/v5" // JWT library for signing bearer tokens
)

// ErrInvalidToken is returned for any bearer token that fails signature or
// payload checks.  Callers do not need to tell the cases apart.
var ErrInvalidToken = errors.New("invalid token")

// APIClaims is the payload of a bearer token.  It carries nothing but the
// id of the API token row; everything else about the caller is looked up
// from the store on each request, so deleting or invalidating that row
// revokes the bearer token.  Expiry lives on the row, not in the JWT.
type APIClaims struct {
	TokenID *uint64 `json:"tokenId"`
	jwt.RegisteredClaims
}

// SignAPIToken builds and signs an HS256 bearer token for the API token row
// identified by tokenID.
func SignAPIToken(secret string, tokenID uint64) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	claims := APIClaims{TokenID: &tokenID}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseAPIToken verifies the signature of raw and returns the token id it
// references.  Only HS256 is accepted and the tokenId claim must be a
// present non-negative integer.
func ParseAPIToken(secret, raw string) (uint64, error) {
	claims := &APIClaims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return 0, ErrInvalidToken
	}
	if claims.TokenID == nil {
		return 0, ErrInvalidToken
	}
	return *claims.TokenID, nil
}
