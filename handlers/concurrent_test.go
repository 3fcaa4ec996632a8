// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
	tu "github.com/bankass-awards/server/testutil"
)

// TestConcurrentDoubleVote fires many identical submissions at once; the
// store must keep exactly one.
func TestConcurrentDoubleVote(t *testing.T) {
	db := tu.SetupTestDB(t)
	cfg := tu.GetTestConfig()
	handler := NewVoteHandler(db, cfg, events.Nop{}, middleware.NewMetrics())

	voter := tu.CreateTestUser(t, db, models.RoleVoter)
	category := tu.CreateTestCategory(t, db, "Révélation", false)
	first := tu.CreateTestCandidate(t, db, category.ID, "Awa")
	second := tu.CreateTestCandidate(t, db, category.ID, "Bakary")
	tu.SetVotingOpen(t, db, true, "")

	const attempts = 10
	var created, duplicates atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Alternate candidates: switching choice must not get around the limit
			candidate := first
			if i%2 == 1 {
				candidate = second
			}
			body := models.CastVoteRequest{UserID: voter.ID, CategoryID: category.ID, CandidateID: candidate.ID}
			w := httptest.NewRecorder()
			handler.Cast(w, tu.WithSession(tu.MakeRequest("POST", "/api/votes", body, nil), voter))

			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusBadRequest:
				duplicates.Add(1)
			default:
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(attempts-1), duplicates.Load())
	assert.Equal(t, 1, tu.CountRows(t, db,
		"SELECT COUNT(*) FROM votes WHERE user_id = ? AND category_id = ?", voter.ID, category.ID))
}

// TestConcurrentVotesAcrossCategories checks that the per-category limit
// does not block a voter's votes in other categories.
func TestConcurrentVotesAcrossCategories(t *testing.T) {
	db := tu.SetupTestDB(t)
	cfg := tu.GetTestConfig()
	handler := NewVoteHandler(db, cfg, events.Nop{}, middleware.NewMetrics())

	voter := tu.CreateTestUser(t, db, models.RoleVoter)
	tu.SetVotingOpen(t, db, true, "")

	const numCategories = 5
	bodies := make([]models.CastVoteRequest, 0, numCategories)
	for i := 0; i < numCategories; i++ {
		category := tu.CreateTestCategory(t, db, "Catégorie "+string(rune('A'+i)), false)
		candidate := tu.CreateTestCandidate(t, db, category.ID, "Candidat "+string(rune('A'+i)))
		bodies = append(bodies, models.CastVoteRequest{UserID: voter.ID, CategoryID: category.ID, CandidateID: candidate.ID})
	}

	var created atomic.Int32
	var wg sync.WaitGroup
	for _, body := range bodies {
		wg.Add(1)
		go func(body models.CastVoteRequest) {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.Cast(w, tu.WithSession(tu.MakeRequest("POST", "/api/votes", body, nil), voter))
			if w.Code == http.StatusCreated {
				created.Add(1)
			} else {
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(body)
	}
	wg.Wait()

	assert.Equal(t, int32(numCategories), created.Load())
	assert.Equal(t, numCategories, tu.CountRows(t, db, "SELECT COUNT(*) FROM votes WHERE user_id = ?", voter.ID))
}

// TestConcurrentSignups races several signups for the same phone number.
func TestConcurrentSignups(t *testing.T) {
	db := tu.SetupTestDB(t)
	handler := NewUserHandler(db, tu.GetTestConfig(), tu.Sessions())

	// Same number, written differently
	phones := []string{"76123456", "+22376123456", "223 76 12 34 56", "76-12-34-56", "+223 76123456"}

	var created atomic.Int32
	var wg sync.WaitGroup
	for _, phone := range phones {
		wg.Add(1)
		go func(phone string) {
			defer wg.Done()
			body := map[string]string{
				"name": "Moussa", "phone": phone, "password": "secret1", "domain": "Musique", "city": "Bankass",
			}
			w := httptest.NewRecorder()
			handler.Signup(w, tu.MakeRequest("POST", "/api/users", body, nil))

			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusBadRequest:
			default:
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(phone)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, 1, tu.CountRows(t, db, "SELECT COUNT(*) FROM users WHERE phone = ?", "+22376123456"))
}
