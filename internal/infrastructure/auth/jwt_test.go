package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/shared/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:           "test-secret",
		Issuer:           "canopy-test",
		AccessExpMinutes: 15,
		RefreshExpDays:   7,
	})
}

func TestJWTGenerateAndVerify(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.Generate("user-1", "owner@example.com", "tenant-1", "owner")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(15*60), pair.ExpiresIn)

	claims, err := svc.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserUUID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "owner", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "canopy-test", claims.Issuer)
}

func TestJWTVerifyRejectsWrongSecret(t *testing.T) {
	pair, err := newTestJWTService().Generate("user-1", "a@b.c", "", "member")
	require.NoError(t, err)

	other := NewJWTService(&config.JWTConfig{Secret: "other-secret", AccessExpMinutes: 15, RefreshExpDays: 7})
	_, err = other.Verify(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWTVerifyRejectsUnexpectedAlg(t *testing.T) {
	svc := newTestJWTService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserUUID: "user-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.Error(t, err)
}

func TestJWTRefreshRotatesPair(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.Generate("user-1", "a@b.c", "tenant-1", "member")
	require.NoError(t, err)

	rotated, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.Verify(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserUUID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestJWTRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.Generate("user-1", "a@b.c", "", "member")
	require.NoError(t, err)

	_, err = svc.Refresh(pair.AccessToken)
	assert.Error(t, err)
}
