package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCheck(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)
	hashed, err := h.Hash("valid_password")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	assert.NotEqual(t, "valid_password", hashed)

	assert.True(t, h.Check(hashed, "valid_password"))
	assert.False(t, h.Check(hashed, "wrong_password"))
	assert.False(t, h.Check(hashed, ""))
	assert.False(t, h.Check("", "valid_password"))
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)
	a, err := h.Hash("same_password")
	require.NoError(t, err)
	b, err := h.Hash("same_password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_LongPassword(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)
	long := strings.Repeat("a", 80)
	hashed, err := h.Hash(long)
	require.NoError(t, err)

	assert.True(t, h.Check(hashed, long))
	// bytes past 72 still count
	assert.False(t, h.Check(hashed, strings.Repeat("a", 79)+"b"))
	assert.False(t, h.Check(hashed, strings.Repeat("a", 72)))
}

func TestHasher_EmptyPassword(t *testing.T) {
	t.Parallel()

	_, err := New(bcrypt.MinCost).Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestNew_OutOfRangeCostFallsBack(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, New(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, New(99).Cost)
	assert.Equal(t, 12, New(12).Cost)
}
