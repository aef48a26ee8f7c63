package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lingotutor.io/smart-tutor/internal/config"
)

func withSecret(t *testing.T, secret string) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig.JWTSecret = secret
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestGenerateAndValidate(t *testing.T) {
	withSecret(t, "test-secret")

	token, err := GenerateJWT("5d0c2a8e-user")
	require.NoError(t, err)

	userID, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "5d0c2a8e-user", userID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	withSecret(t, "first")
	token, err := GenerateJWT("user-1")
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "second"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredAndSubjectless(t *testing.T) {
	withSecret(t, "test-secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ValidateJWT(signed)
	assert.Error(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = noSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ValidateJWT(signed)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	withSecret(t, "test-secret")
	_, err := ValidateJWT("not.a.jwt")
	assert.Error(t, err)
}
