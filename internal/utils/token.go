package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Email token codes are uniform over [emailTokenMin, emailTokenMin+emailTokenSpan).
const (
	emailTokenMin  = 10_000_000
	emailTokenSpan = 90_000_000
)

// NewEmailToken returns an 8 digit login code.  It is a low entropy one
// time code; short expiry and single redemption bound its exposure.
func NewEmailToken() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(emailTokenSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+emailTokenMin, 10), nil
}

// HashEmailToken returns the hex blake2b-256 digest stored in place of the
// code.  Lookups hash the submitted code and compare digests.
func HashEmailToken(code string) string {
	sum := blake2b.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
