package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!Pass", hash)

	ok, err := h.Verify("Str0ng!Pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := h.Hash("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}

func TestBcryptHasher_Errors(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	ok, err := h.Verify("anything", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestBcryptHasher_LengthLimit(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	atLimit := "Str0ng!" + strings.Repeat("a", MaxPasswordBytes-7)
	require.Len(t, atLimit, MaxPasswordBytes)

	hash, err := h.Hash(atLimit)
	require.NoError(t, err)

	_, err = h.Hash(atLimit + "a")
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	ok, err := h.Verify(atLimit+"extra", hash)
	require.NoError(t, err)
	assert.False(t, ok, "bytes past the limit must not be ignored")
}
