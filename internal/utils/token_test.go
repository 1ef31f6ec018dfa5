package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailTokenIsEightDigits(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewEmailToken()
		require.NoError(t, err)
		require.Len(t, code, 8)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 10_000_000)
		assert.LessOrEqual(t, n, 99_999_999)
	}
}

func TestHashEmailToken(t *testing.T) {
	a := HashEmailToken("12345678")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashEmailToken("12345678"))
	assert.NotEqual(t, a, HashEmailToken("12345679"))
	assert.NotContains(t, a, "12345678")
}
