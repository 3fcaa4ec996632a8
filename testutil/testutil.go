// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

// TestPassword is the password of every user created by CreateTestUser.
const TestPassword = "motdepasse123"

// SetupTestDB opens a fresh SQLite database in the test's temp directory
// with the full schema. It is closed when the test ends.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := GetTestConfig()
	cfg.DatabaseURL = "file:" + filepath.Join(t.TempDir(), "bankass.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

	conn, err := db.Open(context.Background(), cfg)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.CreateSchema(context.Background(), conn), "failed to create schema")

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseType:   cliparse.DatabaseSQLite,
		SessionSecret:  "test-session-secret",
		SessionTTL:     time.Hour,
		IPHashSalt:     "test-ip-salt",
		PublicBaseURL:  "http://localhost:3318",
		UploadMaxBytes: 1 << 20,
		AMQPQueue:      "bankass.events",
		PollInterval:   30 * time.Second,
	}
}

// Sessions returns a token issuer matching GetTestConfig.
func Sessions() *auth.Sessions {
	cfg := GetTestConfig()
	return auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
}

// CreateTestUser inserts a user with a unique email and TestPassword.
func CreateTestUser(t *testing.T, conn *sqlx.DB, role string) models.User {
	t.Helper()

	id := auth.GenerateID()
	email := id[:8] + "@example.ml"
	hash, err := auth.HashPassword(TestPassword)
	require.NoError(t, err)

	user := models.User{
		ID:           id,
		Name:         "Test " + id[:4],
		Email:        &email,
		PasswordHash: hash,
		Role:         role,
		Domain:       "Musique",
		City:         "Bankass",
		CreatedAt:    time.Now().UTC(),
	}
	_, err = conn.NamedExec(db.InsertUserSQL, user)
	require.NoError(t, err, "failed to create test user")

	return user
}

// CreateTestCategory inserts a category with no candidates.
func CreateTestCategory(t *testing.T, conn *sqlx.DB, name string, leadership bool) models.Category {
	t.Helper()

	category := models.Category{
		ID:                auth.GenerateID(),
		Name:              name,
		Subtitle:          "Sous-titre " + name,
		IsLeadershipPrize: leadership,
		CreatedAt:         time.Now().UTC(),
		Candidates:        []models.Candidate{},
	}
	_, err := conn.NamedExec(db.InsertCategorySQL, category)
	require.NoError(t, err, "failed to create test category")

	return category
}

// CreateTestCandidate inserts a candidate into categoryID.
func CreateTestCandidate(t *testing.T, conn *sqlx.DB, categoryID, name string) models.Candidate {
	t.Helper()

	candidate := models.Candidate{
		ID:           auth.GenerateID(),
		CategoryID:   categoryID,
		Name:         name,
		Image:        "https://cdn.example.ml/" + name + ".jpg",
		Bio:          "Bio de " + name,
		Achievements: models.StringList{"Premier album"},
		CreatedAt:    time.Now().UTC(),
	}
	_, err := conn.NamedExec(db.InsertCandidateSQL, candidate)
	require.NoError(t, err, "failed to create test candidate")

	return candidate
}

// CreateTestVote inserts a vote directly, bypassing the voting gate.
func CreateTestVote(t *testing.T, conn *sqlx.DB, userID string, candidate models.Candidate, votedAt int64) models.Vote {
	t.Helper()

	vote := models.Vote{
		ID:            auth.GenerateID(),
		UserID:        userID,
		CategoryID:    candidate.CategoryID,
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		Timestamp:     votedAt,
	}
	_, err := conn.NamedExec(db.InsertVoteIfAbsentSQL, vote)
	require.NoError(t, err, "failed to create test vote")

	return vote
}

// CreateTestNotification inserts an unread notification for userID.
func CreateTestNotification(t *testing.T, conn *sqlx.DB, userID, title string) models.Notification {
	t.Helper()

	notification := models.Notification{
		ID:        auth.GenerateID(),
		UserID:    userID,
		Type:      "INFO",
		Title:     title,
		Message:   "Message " + title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := conn.NamedExec(db.InsertNotificationSQL, notification)
	require.NoError(t, err, "failed to create test notification")

	return notification
}

// SetVotingOpen writes the voting configuration row.
func SetVotingOpen(t *testing.T, conn *sqlx.DB, open bool, blockMessage string) {
	t.Helper()

	_, err := conn.NamedExec(db.UpsertVotingConfigSQL, map[string]any{
		"id":             models.VotingConfigID,
		"current_event":  nil,
		"is_voting_open": open,
		"block_message":  blockMessage,
		"updated_at":     time.Now().UTC(),
	})
	require.NoError(t, err, "failed to set voting config")
}

// CountRows runs a COUNT(*) query written with ? placeholders.
func CountRows(t *testing.T, conn *sqlx.DB, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, conn.Get(&n, conn.Rebind(query), args...))
	return n
}

// AuthHeader returns request headers carrying a session token for user.
func AuthHeader(t *testing.T, user models.User) map[string]string {
	t.Helper()

	token, err := Sessions().Issue(user.ID, user.Role)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

// WithSession attaches user's session to req, as RequireSession would.
func WithSession(req *http.Request, user models.User) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), middleware.Session{
		UserID: user.ID,
		Role:   user.Role,
	}))
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertError checks the status and the {"error": ...} body of a response.
func AssertError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	AssertStatus(t, w, status)
	var body models.ErrorResponse
	AssertJSON(t, w, &body)
	if body.Error != message {
		t.Errorf("Expected error %q, got %q", message, body.Error)
	}
}
