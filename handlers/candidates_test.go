// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankass-awards/server/models"
	tu "github.com/bankass-awards/server/testutil"
)

func TestListCandidates(t *testing.T) {
	conn := tu.SetupTestDB(t)
	handler := NewCandidateHandler(conn, tu.GetTestConfig())

	song := tu.CreateTestCategory(t, conn, "Meilleure Chanson", false)
	artist := tu.CreateTestCategory(t, conn, "Meilleur Artiste", false)
	tu.CreateTestCandidate(t, conn, song.ID, "Awa")
	tu.CreateTestCandidate(t, conn, song.ID, "Bakary")
	tu.CreateTestCandidate(t, conn, artist.ID, "Coumba")

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{"all", "", 3},
		{"by category", "?categoryId=" + song.ID, 2},
		{"empty category", "?categoryId=0b6b7a48-1c1f-4d3e-9a51-6f0c2d8e7a10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.List(w, tu.MakeRequest("GET", "/api/candidates"+tt.query, nil, nil))

			tu.AssertStatus(t, w, http.StatusOK)
			var candidates []models.Candidate
			tu.AssertJSON(t, w, &candidates)
			assert.Len(t, candidates, tt.expected)
		})
	}

	t.Run("invalid category", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.List(w, tu.MakeRequest("GET", "/api/candidates?categoryId=x", nil, nil))
		tu.AssertError(t, w, http.StatusBadRequest, "ID catégorie invalide")
	})
}

func TestCreateCandidate(t *testing.T) {
	conn := tu.SetupTestDB(t)
	handler := NewCandidateHandler(conn, tu.GetTestConfig())
	admin := tu.CreateTestUser(t, conn, models.RoleSuperAdmin)
	category := tu.CreateTestCategory(t, conn, "Révélation", false)

	valid := func() map[string]any {
		return map[string]any{
			"categoryId":   category.ID,
			"name":         "Awa Diallo",
			"alias":        "Awa D",
			"image":        "https://cdn.example.ml/awa.jpg",
			"bio":          "Chanteuse de Bankass",
			"achievements": []string{"Disque d'or", "Tournée nationale"},
			"songCount":    12,
		}
	}

	tests := []struct {
		name           string
		mutate         func(map[string]any)
		expectedStatus int
		expectedError  string
	}{
		{"missing bio", func(b map[string]any) { delete(b, "bio") }, http.StatusBadRequest, "Catégorie, nom, image et bio sont requis"},
		{"missing image", func(b map[string]any) { b["image"] = "" }, http.StatusBadRequest, "Catégorie, nom, image et bio sont requis"},
		{"invalid category", func(b map[string]any) { b["categoryId"] = "cat" }, http.StatusBadRequest, "ID catégorie invalide"},
		{"unknown category", func(b map[string]any) { b["categoryId"] = "0b6b7a48-1c1f-4d3e-9a51-6f0c2d8e7a10" }, http.StatusBadRequest, "Catégorie introuvable"},
		{"valid", func(map[string]any) {}, http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid()
			tt.mutate(body)

			w := httptest.NewRecorder()
			handler.Create(w, tu.WithSession(tu.MakeRequest("POST", "/api/candidates", body, nil), admin))

			if tt.expectedError != "" {
				tu.AssertError(t, w, tt.expectedStatus, tt.expectedError)
				return
			}
			tu.AssertStatus(t, w, tt.expectedStatus)

			var c models.Candidate
			tu.AssertJSON(t, w, &c)
			assert.Equal(t, category.ID, c.CategoryID)
			assert.Equal(t, "Awa D", c.Alias)
			assert.Equal(t, 12, c.SongCount)
			assert.Equal(t, models.StringList{"Disque d'or", "Tournée nationale"}, c.Achievements)
		})
	}

	assert.Equal(t, 1, tu.CountRows(t, conn, "SELECT COUNT(*) FROM candidates"))
}

func TestUpdateCandidate(t *testing.T) {
	conn := tu.SetupTestDB(t)
	handler := NewCandidateHandler(conn, tu.GetTestConfig())
	admin := tu.CreateTestUser(t, conn, models.RoleSuperAdmin)
	category := tu.CreateTestCategory(t, conn, "Révélation", false)
	target := tu.CreateTestCategory(t, conn, "Meilleur Artiste", false)
	candidate := tu.CreateTestCandidate(t, conn, category.ID, "Awa")

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		expectedError  string
	}{
		{"missing id", map[string]any{"bio": "x"}, http.StatusBadRequest, "ID candidat requis"},
		{"invalid id", map[string]any{"id": "1", "bio": "x"}, http.StatusBadRequest, "ID candidat invalide"},
		{"unknown id", map[string]any{"id": "0b6b7a48-1c1f-4d3e-9a51-6f0c2d8e7a10", "bio": "x"}, http.StatusNotFound, "Candidat non trouvé"},
		{"unknown target category", map[string]any{"id": candidate.ID, "categoryId": "0b6b7a48-1c1f-4d3e-9a51-6f0c2d8e7a10"}, http.StatusBadRequest, "Catégorie introuvable"},
		{"no fields", map[string]any{"id": candidate.ID}, http.StatusBadRequest, "Aucune modification fournie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Update(w, tu.WithSession(tu.MakeRequest("PUT", "/api/candidates", tt.body, nil), admin))
			tu.AssertError(t, w, tt.expectedStatus, tt.expectedError)
		})
	}

	t.Run("partial update", func(t *testing.T) {
		body := map[string]any{"id": candidate.ID, "categoryId": target.ID, "achievements": []string{"Prix RFI"}}
		w := httptest.NewRecorder()
		handler.Update(w, tu.WithSession(tu.MakeRequest("PUT", "/api/candidates", body, nil), admin))

		tu.AssertStatus(t, w, http.StatusOK)
		var c models.Candidate
		tu.AssertJSON(t, w, &c)
		assert.Equal(t, target.ID, c.CategoryID)
		assert.Equal(t, models.StringList{"Prix RFI"}, c.Achievements)
		assert.Equal(t, candidate.Bio, c.Bio)
		assert.Equal(t, candidate.Image, c.Image)
	})

	t.Run("move refused once voted", func(t *testing.T) {
		voted := tu.CreateTestCandidate(t, conn, category.ID, "Bakary")
		voter := tu.CreateTestUser(t, conn, models.RoleVoter)
		tu.CreateTestVote(t, conn, voter.ID, voted, 100)

		body := map[string]any{"id": voted.ID, "categoryId": target.ID, "bio": "Nouvelle bio"}
		w := httptest.NewRecorder()
		handler.Update(w, tu.WithSession(tu.MakeRequest("PUT", "/api/candidates", body, nil), admin))
		tu.AssertError(t, w, http.StatusBadRequest, "Impossible de changer la catégorie d'un candidat qui a déjà reçu des votes")

		// Nothing was applied
		assert.Equal(t, 1, tu.CountRows(t, conn,
			"SELECT COUNT(*) FROM candidates WHERE id = ? AND category_id = ? AND bio = ?", voted.ID, category.ID, voted.Bio))
		assert.Zero(t, tu.CountRows(t, conn,
			"SELECT COUNT(*) FROM votes v JOIN candidates c ON c.id = v.candidate_id WHERE v.category_id <> c.category_id"))

		// Restating the current category is not a move
		body["categoryId"] = category.ID
		w = httptest.NewRecorder()
		handler.Update(w, tu.WithSession(tu.MakeRequest("PUT", "/api/candidates", body, nil), admin))
		tu.AssertStatus(t, w, http.StatusOK)
	})
}

func TestDeleteCandidate(t *testing.T) {
	conn := tu.SetupTestDB(t)
	handler := NewCandidateHandler(conn, tu.GetTestConfig())
	admin := tu.CreateTestUser(t, conn, models.RoleSuperAdmin)
	category := tu.CreateTestCategory(t, conn, "Révélation", false)
	candidate := tu.CreateTestCandidate(t, conn, category.ID, "Awa")

	w := httptest.NewRecorder()
	handler.Delete(w, tu.WithSession(tu.MakeRequest("DELETE", "/api/candidates?id="+candidate.ID, nil, nil), admin))
	tu.AssertStatus(t, w, http.StatusOK)

	var resp models.MessageResponse
	tu.AssertJSON(t, w, &resp)
	assert.Equal(t, "Candidat supprimé avec succès", resp.Message)
	require.Zero(t, tu.CountRows(t, conn, "SELECT COUNT(*) FROM candidates"))

	w = httptest.NewRecorder()
	handler.Delete(w, tu.WithSession(tu.MakeRequest("DELETE", "/api/candidates", nil, nil), admin))
	tu.AssertError(t, w, http.StatusBadRequest, "ID candidat requis")
}
