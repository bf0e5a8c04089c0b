package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken("user-1", RoleAdmin, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, RoleAdmin, claims.Role)
}

func TestGenerateTokenDefaultsRole(t *testing.T) {
	token, err := GenerateToken("user-2", "", []byte("s"), time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(token, []byte("s"))
	require.NoError(t, err)
	require.Equal(t, RoleUser, claims.Role)
}

func TestParseTokenRejectsWrongSecretAndExpired(t *testing.T) {
	token, err := GenerateToken("user-1", RoleUser, []byte("a"), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("b"))
	require.Error(t, err)

	expired, err := GenerateToken("user-1", RoleUser, []byte("a"), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, []byte("a"))
	require.Error(t, err)
}
