package services

import (
	"testing"
	"time"

	"bookstore/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_TokenRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, zerolog.Nop())
	admin := models.UserTypeAdmin

	token, err := svc.GenerateToken(&models.User{ID: 3, Username: "root", UserType: &admin})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 3, claims.UserID)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, string(models.RoleAdmin), claims.Role)
}

func TestAuthService_RegularUserRole(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, zerolog.Nop())

	token, err := svc.GenerateToken(&models.User{ID: 4, Username: "ann"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleUser), claims.Role)
}

func TestAuthService_RejectsForeignAndExpiredTokens(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, zerolog.Nop())

	other := NewAuthService("other-secret", time.Hour, zerolog.Nop())
	foreign, err := other.GenerateToken(&models.User{ID: 1, Username: "x"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthService_DefaultSecret(t *testing.T) {
	svc := NewAuthService("", 0, zerolog.Nop())
	assert.Equal(t, defaultSecret, svc.SecretKey())
}
