package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	id := uuid.New()

	access, err := GenerateAccessToken(id, "secret", time.Minute)
	require.NoError(t, err)
	refresh, err := GenerateRefreshToken(id, "other", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(access, "secret")
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, PurposeAccess, claims.Purpose)

	claims, err = VerifyToken(refresh, "other")
	require.NoError(t, err)
	assert.Equal(t, PurposeRefresh, claims.Purpose)

	_, err = VerifyToken(access, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "secret", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token, "secret")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{UserID: uuid.New(), Purpose: PurposeAccess}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = VerifyToken(token, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = VerifyToken("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
