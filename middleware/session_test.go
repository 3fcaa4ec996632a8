// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
	"github.com/bankass-awards/server/testutil"
)

func TestRequireSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	authn := middleware.NewAuthenticator(testutil.Sessions(), db)
	voter := testutil.CreateTestUser(t, db, models.RoleVoter)

	var got middleware.Session
	handler := authn.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		got, _ = middleware.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	expired, err := auth.NewSessions(testutil.GetTestConfig().SessionSecret, -time.Minute).Issue(voter.ID, voter.Role)
	require.NoError(t, err)
	forged, err := auth.NewSessions("another-secret", time.Hour).Issue(voter.ID, voter.Role)
	require.NoError(t, err)
	ghost, err := testutil.Sessions().Issue(auth.GenerateID(), models.RoleSuperAdmin)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedError  string
	}{
		{"no header", "", http.StatusUnauthorized, "Authentification requise"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Format du jeton invalide"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Format du jeton invalide"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, "Session invalide ou expirée"},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "Session invalide ou expirée"},
		{"wrong signing key", "Bearer " + forged, http.StatusUnauthorized, "Session invalide ou expirée"},
		{"deleted user", "Bearer " + ghost, http.StatusUnauthorized, "Session invalide ou expirée"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := httptest.NewRecorder()
			handler(w, testutil.MakeRequest("GET", "/api/auth/me", nil, headers))
			testutil.AssertError(t, w, tt.expectedStatus, tt.expectedError)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, testutil.MakeRequest("GET", "/api/auth/me", nil, testutil.AuthHeader(t, voter)))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, voter.ID, got.UserID)
		assert.Equal(t, models.RoleVoter, got.Role)
		assert.False(t, got.IsAdmin())
	})
}

func TestRequireAdmin_UsesStoredRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	authn := middleware.NewAuthenticator(testutil.Sessions(), db)
	user := testutil.CreateTestUser(t, db, models.RoleVoter)

	handler := authn.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Token minted while the user was a voter.
	headers := testutil.AuthHeader(t, user)

	w := httptest.NewRecorder()
	handler(w, testutil.MakeRequest("GET", "/api/users", nil, headers))
	testutil.AssertError(t, w, http.StatusForbidden, "Accès réservé aux administrateurs")

	_, err := db.Exec(db.Rebind("UPDATE users SET role = ? WHERE id = ?"), models.RoleSuperAdmin, user.ID)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	handler(w, testutil.MakeRequest("GET", "/api/users", nil, headers))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
