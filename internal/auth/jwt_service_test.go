package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: testSecret, TokenTTL: time.Minute})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:   "user-1",
		Username: "jdoe",
		IsAdmin:  true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "jdoe", claims.Username)
	require.True(t, claims.IsAdmin)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: testSecret, TokenTTL: time.Nanosecond})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.ValidateAccessToken(tampered)
	require.Error(t, err)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	issuerSvc, err := NewJWTService(JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	otherSvc, err := NewJWTService(JWTConfig{Secret: strings.Repeat("z", 32)})
	require.NoError(t, err)

	token, err := issuerSvc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = otherSvc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestNewJWTServiceRequiresStrongSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "short"})
	require.Error(t, err)
}
