package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewJWTManager("test-secret", 2, 7)

	tokenString, err := m.GenerateToken(42, "alice", "USER", "hr")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := m.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, "hr", claims.OrgID)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret", 2, 7)
	other := NewJWTManager("another-secret", 2, 7)

	tokenString, err := m.GenerateToken(1, "bob", "ADMIN", "")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	assert.Error(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", 2, 7)
	_, err := m.VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 2, 7)

	refresh, err := m.GenerateRefreshToken(7, "carol", "USER", "finance")
	require.NoError(t, err)

	claims, err := m.VerifyToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	// refresh token 的有效期应长于 access token
	access, err := m.GenerateToken(7, "carol", "USER", "finance")
	require.NoError(t, err)
	accessClaims, err := m.VerifyToken(access)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.After(accessClaims.ExpiresAt.Time))
}

func TestGenerateRandomString(t *testing.T) {
	a := GenerateRandomString(16)
	b := GenerateRandomString(16)
	assert.Len(t, a, 32) // hex 编码后长度翻倍
	assert.NotEqual(t, a, b)
}
