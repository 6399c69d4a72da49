package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "dev@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "dev@example.com", claims.Email)
}

func TestParseJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT(42, "dev@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ParseJWT(token, "another-secret")
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ParseJWT("not.a.token", testSecret)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := GenerateJWT(42, "dev@example.com", testSecret, -time.Minute)
		require.NoError(t, err)

		_, err = ParseJWT(expired, testSecret)
		assert.Error(t, err)
	})
}
