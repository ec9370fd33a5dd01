package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	s, err := NewSigner("top-secret")
	require.NoError(t, err)

	token, err := s.Sign("sid", time.Hour)
	require.NoError(t, err)
	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid", claims.SessionID)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSigner("top-secret")
	require.NoError(t, err)
	s.WithClock(func() time.Time { return now })

	token, err := s.Sign("sid", time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Parse(token)
	assert.Error(t, err)

	other, err := NewSigner("other-secret")
	require.NoError(t, err)
	fresh, err := other.Sign("sid", time.Hour)
	require.NoError(t, err)
	now = time.Now()
	_, err = s.Parse(fresh)
	assert.Error(t, err)

	_, err = s.Parse("garbage")
	assert.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestEmptySessionIDIsInvalid(t *testing.T) {
	s, err := NewSigner("top-secret")
	require.NoError(t, err)
	token, err := s.Sign("", time.Hour)
	require.NoError(t, err)
	_, err = s.Parse(token)
	assert.Error(t, err)
}
