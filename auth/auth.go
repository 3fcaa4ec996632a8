// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrWeakPassword = errors.New("password too short")
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// Mali country code; phones are stored as +223 followed by 8 digits.
const phoneCountryCode = "223"

var (
	uuidRegex  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// GenerateID returns a new random (version 4) UUID string for a row ID.
func GenerateID() string {
	return uuid.NewString()
}

// RandomHex creates a random hex string of the specified byte length
func RandomHex(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidUUID reports whether s is an RFC 4122 UUID (versions 1-5) in canonical form.
func ValidUUID(s string) bool {
	return uuidRegex.MatchString(s)
}

func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone reduces a Malian phone number to +223XXXXXXXX.
// Separators are ignored and an explicit country code is optional, so
// "+223 76 12 34 56", "22376123456" and "76123456" all normalize the same.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 11 && strings.HasPrefix(d, phoneCountryCode) {
		d = d[len(phoneCountryCode):]
	}
	if len(d) != 8 {
		return "", ErrInvalidPhone
	}
	return "+" + phoneCountryCode + d, nil
}

// HashPassword bcrypt-hashes a password. Every code path that stores a
// password goes through here.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt hash.
// An empty hash never matches.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
