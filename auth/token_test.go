package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testToken builds an unsigned three-segment token around the given claims.
func testToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestDecodeToken(t *testing.T) {
	now := time.Now()

	t.Run("subject from sub", func(t *testing.T) {
		c, err := DecodeToken(testToken(t, map[string]any{"sub": "user1", "exp": float64(now.Unix())}))
		require.NoError(t, err)
		assert.Equal(t, "user1", c.Subject)
		assert.Equal(t, now.Unix(), c.Exp)
	})

	t.Run("subject from id", func(t *testing.T) {
		c, err := DecodeToken(testToken(t, map[string]any{"id": "abc"}))
		require.NoError(t, err)
		assert.Equal(t, "abc", c.Subject)
	})

	t.Run("subject from userId", func(t *testing.T) {
		c, err := DecodeToken(testToken(t, map[string]any{"userId": "u9"}))
		require.NoError(t, err)
		assert.Equal(t, "u9", c.Subject)
	})

	t.Run("sub wins over id", func(t *testing.T) {
		c, err := DecodeToken(testToken(t, map[string]any{"sub": "s", "id": "i"}))
		require.NoError(t, err)
		assert.Equal(t, "s", c.Subject)
	})

	t.Run("numeric subject", func(t *testing.T) {
		c, err := DecodeToken(testToken(t, map[string]any{"sub": 42}))
		require.NoError(t, err)
		assert.Equal(t, "42", c.Subject)
	})

	t.Run("no subject no exp", func(t *testing.T) {
		c, err := DecodeToken(testToken(t, map[string]any{"foo": "bar"}))
		require.NoError(t, err)
		assert.Empty(t, c.Subject)
		assert.Zero(t, c.Exp)
	})

	malformed := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"two segments", "aaa.bbb"},
		{"four segments", "a.b.c.d"},
		{"bad base64 payload", "aaa.!!!.ccc"},
		{"payload not json", "aaa." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".ccc"},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToken(tt.token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"fresh", testToken(t, map[string]any{"sub": "u", "exp": float64(now.Add(time.Hour).Unix())}), true},
		{"expired", testToken(t, map[string]any{"sub": "u", "exp": float64(now.Add(-time.Hour).Unix())}), false},
		{"no expiry", testToken(t, map[string]any{"sub": "u"}), false},
		{"malformed", "not-a-token", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.token, now))
		})
	}
}

func TestValidExpiryBoundary(t *testing.T) {
	// exp is in whole seconds; one second past expiry must be invalid,
	// one second before must be valid.
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := testToken(t, map[string]any{"sub": "u", "exp": float64(exp.Unix())})
	assert.True(t, Valid(token, exp.Add(-time.Second)))
	assert.False(t, Valid(token, exp.Add(time.Second)))
}
