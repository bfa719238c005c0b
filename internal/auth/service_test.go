package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	plain := "hunter22"

	hash, err := HashPassword(plain)
	require.NoError(t, err)
	require.NotEqual(t, plain, hash)

	require.True(t, ComparePasswords(hash, plain))
	require.False(t, ComparePasswords(hash, "wrong-password"))
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("same-secret")
	require.NoError(t, err)
	second, err := HashPassword("same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestValidateUserFields(t *testing.T) {
	valid := NewUser{UserName: "john_doe", PasswordPlain: "secret123", Email: "john.doe@gmail.com"}
	require.NoError(t, valid.ValidateUserFields())

	t.Run("empty username", func(t *testing.T) {
		u := valid
		u.UserName = ""
		assert.Error(t, u.ValidateUserFields())
	})

	t.Run("uppercase username", func(t *testing.T) {
		u := valid
		u.UserName = "JohnDoe"
		assert.Error(t, u.ValidateUserFields())
	})

	t.Run("bad email", func(t *testing.T) {
		u := valid
		u.Email = "not-an-email"
		assert.Error(t, u.ValidateUserFields())
	})

	t.Run("empty password", func(t *testing.T) {
		u := valid
		u.PasswordPlain = ""
		assert.Error(t, u.ValidateUserFields())
	})
}
