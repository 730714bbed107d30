// ABOUTME: Tests for session codecs
// ABOUTME: Round-trips, tampering, expiry, and malformed cookie values

package auth

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyCodec_RoundTrip(t *testing.T) {
	c := LegacyCodec{}
	value, err := c.Encode(Session{UserID: 3, Role: RoleViewer})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(value)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":3,"role":"viewer"}`, string(raw))

	s, err := c.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: 3, Role: RoleViewer}, s)
}

func TestLegacyCodec_DecodesPercentEncodedValue(t *testing.T) {
	value := base64.StdEncoding.EncodeToString([]byte(`{"userId":12,"role":"admin"}`))
	require.True(t, strings.HasSuffix(value, "="))
	escaped := url.QueryEscape(value)
	require.Contains(t, escaped, "%3D")

	s, err := LegacyCodec{}.Decode(escaped)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: 12, Role: RoleAdmin}, s)
}

func TestLegacyCodec_RejectsMalformed(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		value string
	}{
		{"not base64", "%%%"},
		{"not json", enc("hello")},
		{"zero user", enc(`{"userId":0,"role":"admin"}`)},
		{"negative user", enc(`{"userId":-4,"role":"admin"}`)},
		{"string user id", enc(`{"userId":"1","role":"admin"}`)},
		{"missing role", enc(`{"userId":1}`)},
		{"unknown role", enc(`{"userId":1,"role":"owner"}`)},
		{"role wrong type", enc(`{"userId":1,"role":7}`)},
		{"json array", enc(`[1,"admin"]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := LegacyCodec{}.Decode(tt.value)
				assert.ErrorIs(t, err, ErrInvalidSession)
			})
		})
	}
}

func TestSignedCodec_RoundTrip(t *testing.T) {
	c := NewSignedCodec([]byte("test-secret"))
	value, err := c.Encode(Session{UserID: 9, Role: RoleAdmin})
	require.NoError(t, err)

	s, err := c.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: 9, Role: RoleAdmin}, s)
}

func TestSignedCodec_RejectsWrongSecret(t *testing.T) {
	value, err := NewSignedCodec([]byte("secret-a")).Encode(Session{UserID: 9, Role: RoleAdmin})
	require.NoError(t, err)

	_, err = NewSignedCodec([]byte("secret-b")).Decode(value)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSignedCodec_RejectsLegacyValue(t *testing.T) {
	legacy, err := LegacyCodec{}.Encode(Session{UserID: 1, Role: RoleAdmin})
	require.NoError(t, err)

	_, err = NewSignedCodec([]byte("secret")).Decode(legacy)
	assert.ErrorIs(t, err, ErrInvalidSession, "an unsigned cookie cannot pass as signed")
}

func TestSignedCodec_Expiry(t *testing.T) {
	c := NewSignedCodec([]byte("secret"))
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return issued }

	value, err := c.Encode(Session{UserID: 2, Role: RoleViewer})
	require.NoError(t, err)

	c.now = func() time.Time { return issued.Add(SessionTTL - time.Minute) }
	_, err = c.Decode(value)
	assert.NoError(t, err)

	c.now = func() time.Time { return issued.Add(SessionTTL + time.Minute) }
	_, err = c.Decode(value)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleViewer.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("Admin").Valid())
}
