package logic

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := createToken("user-123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, err := verifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	_, err := verifyToken("")
	assert.Error(t, err)
	_, err = verifyToken("not.a.token")
	assert.Error(t, err)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(common.JWTSecret))
	assert.NoError(t, err)

	_, err = verifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	assert.NoError(t, err)

	_, err = verifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsMissingUserID(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(common.JWTSecret))
	assert.NoError(t, err)

	_, err = verifyToken(token)
	assert.Error(t, err)
}
