package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

const testAccount = id.Account("0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b")

func newTestService() *JWTService {
	return NewJWTService("test-signing-key", "salegate", "salegate-api")
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := newTestService()

	token, err := service.GenerateAccessToken(testAccount, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testAccount.String(), claims.Account)
	assert.Equal(t, "salegate", claims.Issuer)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	service := newTestService()

	token, err := service.GenerateAccessToken(testAccount, -time.Minute)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	token, err := newTestService().GenerateAccessToken(testAccount, time.Hour)
	require.NoError(t, err)

	other := NewJWTService("different-key", "salegate", "salegate-api")
	_, err = other.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := newTestService().ValidateToken("not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestExtractAccount(t *testing.T) {
	service := newTestService()

	token, err := service.GenerateAccessToken(testAccount, time.Hour)
	require.NoError(t, err)

	account, err := service.ExtractAccount(token)
	require.NoError(t, err)
	assert.Equal(t, testAccount, account)
}
