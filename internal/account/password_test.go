package account_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-api/internal/account"
)

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := account.HashSecret("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, account.VerifySecret("correct horse battery staple", hash))
	assert.False(t, account.VerifySecret("correct horse battery stable", hash))
	assert.False(t, account.VerifySecret("", hash))
}

func TestHashSecretRejectsEmpty(t *testing.T) {
	_, err := account.HashSecret("")
	require.Error(t, err)
}

func TestIsHashed(t *testing.T) {
	hash, err := account.HashSecret("s3cret-value")
	require.NoError(t, err)
	assert.True(t, account.IsHashed(hash))

	assert.False(t, account.IsHashed("s3cret-value"))
	assert.False(t, account.IsHashed(""))
	// Right prefix, wrong body length.
	assert.False(t, account.IsHashed("$2a$10$tooshort"))
}

func TestEnsureHashedIsIdempotent(t *testing.T) {
	first, err := account.EnsureHashed("plain-secret-value")
	require.NoError(t, err)
	require.True(t, account.IsHashed(first))
	require.True(t, account.VerifySecret("plain-secret-value", first))

	// A value already in hash form must pass through unchanged; re-hashing it
	// would destroy the credential.
	second, err := account.EnsureHashed(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, account.VerifySecret("plain-secret-value", second))
}
