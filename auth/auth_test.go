// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	assert.True(t, ValidUUID(id1), "generated ID %q should be a valid UUID", id1)
	assert.NotEqual(t, id1, id2, "GenerateID() produced duplicate IDs")
}

func TestRandomHex(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"3 bytes", 3, 6},
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := RandomHex(tt.byteLen)
			require.NoError(t, err)
			assert.Len(t, s, tt.wantLen)
			for _, c := range s {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("RandomHex() contains invalid hex char: %c", c)
				}
			}
		})
	}
}

func TestValidUUID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"3f2b8c1e-9d4a-4b6e-8f0a-1c2d3e4f5a6b", true},
		{"3F2B8C1E-9D4A-4B6E-8F0A-1C2D3E4F5A6B", true},
		{"3f2b8c1e-9d4a-1b6e-af0a-1c2d3e4f5a6b", true},
		{"abc", false},
		{"", false},
		{"3f2b8c1e9d4a4b6e8f0a1c2d3e4f5a6b", false},
		{"3f2b8c1e-9d4a-6b6e-8f0a-1c2d3e4f5a6b", false},
		{"3f2b8c1e-9d4a-4b6e-cf0a-1c2d3e4f5a6b", false},
		{"{3f2b8c1e-9d4a-4b6e-8f0a-1c2d3e4f5a6b}", false},
		{"3f2b8c1e-9d4a-4b6e-8f0a-1c2d3e4f5a6b' OR 1=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidUUID(tt.in))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"76123456", "+22376123456", false},
		{"+22376123456", "+22376123456", false},
		{"+223 76 12 34 56", "+22376123456", false},
		{"22376123456", "+22376123456", false},
		{"76-12-34-56", "+22376123456", false},
		{"7612345", "", true},
		{"+33612345678", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("awa@example.com"))
	assert.False(t, ValidEmail("awa@example"))
	assert.False(t, ValidEmail("awa example.com"))
	assert.Equal(t, "awa@example.com", NormalizeEmail("  Awa@Example.COM "))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, "secret123", hash, "password must never be stored in plaintext")
	assert.True(t, strings.HasPrefix(hash, "$2"), "expected a bcrypt hash, got %q", hash)
	assert.True(t, CheckPassword("secret123", hash))
	assert.False(t, CheckPassword("secret124", hash))
	assert.False(t, CheckPassword("secret123", ""), "empty hash must never match")
	assert.False(t, CheckPassword("secret123", "secret123"), "plaintext stored value must not match")

	_, err = HashPassword("abc")
	assert.True(t, errors.Is(err, ErrWeakPassword))
}

func TestHashIP(t *testing.T) {
	h1 := HashIP("192.168.1.1", "salt")
	h2 := HashIP("192.168.1.1", "salt")
	h3 := HashIP("192.168.1.1", "other")

	assert.Len(t, h1, 16)
	assert.Equal(t, h1, h2, "HashIP should be deterministic")
	assert.NotEqual(t, h1, h3, "different salts should produce different hashes")
}

func TestSessions_IssueAndParse(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)

	token, err := s.Issue("3f2b8c1e-9d4a-4b6e-8f0a-1c2d3e4f5a6b", "VOTER")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "3f2b8c1e-9d4a-4b6e-8f0a-1c2d3e4f5a6b", claims.UserID())
	assert.Equal(t, "VOTER", claims.Role)
}

func TestSessions_Rejects(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)
	token, err := s.Issue("user-1", "SUPER_ADMIN")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessions("other-secret", time.Hour)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := s.Parse(token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewSessions("test-secret", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := expired.Issue("user-1", "VOTER")
		require.NoError(t, err)

		_, err = s.Parse(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
