package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("正确的密码123")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("正确的密码123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("错误的密码", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	first, err := HashPassword("password")
	require.NoError(t, err)
	second, err := HashPassword("password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_InvalidFormat(t *testing.T) {
	_, err := VerifyPassword("password", "not-an-encoded-hash")
	assert.Error(t, err)

	_, err = VerifyPassword("password", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
	assert.Error(t, err)
}
