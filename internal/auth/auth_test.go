package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, salt, err := HashPassword("correct horse")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "%%%", hash)
	assert.Error(t, err)

	hash2, salt2, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, salt, salt2)
	assert.NotEqual(t, hash, hash2)
}

func TestTokens(t *testing.T) {
	_, err := NewTokens("", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)

	tokens, err := NewTokens("s3cret", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, tokens.ttl)

	raw, exp, err := tokens.Issue("u1", "a@b.co", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), exp, 5*time.Second)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.True(t, claims.IsAdmin)

	other, err := NewTokens("different", time.Minute)
	require.NoError(t, err)
	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	tokens, err := NewTokens("s3cret", time.Minute)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, _, err := tokens.Issue("u1", "a@b.co", false)
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
