// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
	tu "github.com/bankass-awards/server/testutil"
)

func TestGetVotingConfig_Default(t *testing.T) {
	conn := tu.SetupTestDB(t)
	handler := NewVotingConfigHandler(conn, tu.GetTestConfig(), events.Nop{})

	w := httptest.NewRecorder()
	handler.Get(w, tu.MakeRequest("GET", "/api/voting-config", nil, nil))

	tu.AssertStatus(t, w, http.StatusOK)
	var resp models.VotingConfigResponse
	tu.AssertJSON(t, w, &resp)
	assert.False(t, resp.IsVotingOpen)
	assert.Equal(t, models.DefaultBlockMessage, resp.BlockMessage)
	assert.Nil(t, resp.CurrentEvent)
	assert.Equal(t, 30, resp.PollIntervalSeconds)
}

func TestUpdateVotingConfig(t *testing.T) {
	conn := tu.SetupTestDB(t)
	recorder := &events.Recorder{}
	handler := NewVotingConfigHandler(conn, tu.GetTestConfig(), recorder)
	admin := tu.CreateTestUser(t, conn, models.RoleSuperAdmin)

	update := func(t *testing.T, body models.UpdateVotingConfigRequest) models.VotingConfigResponse {
		t.Helper()
		w := httptest.NewRecorder()
		handler.Update(w, tu.WithSession(tu.MakeRequest("POST", "/api/voting-config", body, nil), admin))
		tu.AssertStatus(t, w, http.StatusOK)

		var resp models.VotingConfigResponse
		tu.AssertJSON(t, w, &resp)
		return resp
	}
	get := func(t *testing.T) models.VotingConfigResponse {
		t.Helper()
		w := httptest.NewRecorder()
		handler.Get(w, tu.MakeRequest("GET", "/api/voting-config", nil, nil))
		tu.AssertStatus(t, w, http.StatusOK)

		var resp models.VotingConfigResponse
		tu.AssertJSON(t, w, &resp)
		return resp
	}

	event := &models.VotingEvent{
		ID:            "bankass-2025",
		Name:          "Bankass Awards 2025",
		StartDate:     "2025-03-15",
		EndDate:       "2025-03-16",
		IsActive:      true,
		VotingEnabled: true,
	}

	t.Run("open with event", func(t *testing.T) {
		resp := update(t, models.UpdateVotingConfigRequest{CurrentEvent: event, IsVotingOpen: true, BlockMessage: "Fermé"})
		assert.True(t, resp.IsVotingOpen)
		require.NotNil(t, resp.CurrentEvent)
		assert.Equal(t, "Bankass Awards 2025", resp.CurrentEvent.Name)
		assert.NotNil(t, resp.UpdatedAt)
	})

	// The message survives toggles so it is ready for the next close.
	t.Run("block message round trip", func(t *testing.T) {
		for _, open := range []bool{false, true, false} {
			update(t, models.UpdateVotingConfigRequest{CurrentEvent: event, IsVotingOpen: open, BlockMessage: "Rendez-vous le 15 mars"})
			got := get(t)
			assert.Equal(t, open, got.IsVotingOpen)
			assert.Equal(t, "Rendez-vous le 15 mars", got.BlockMessage)
		}
	})

	t.Run("saving the same state publishes nothing", func(t *testing.T) {
		before := len(recorder.Events())
		update(t, models.UpdateVotingConfigRequest{IsVotingOpen: false, BlockMessage: "Bientôt"})
		assert.Len(t, recorder.Events(), before)
	})

	assert.Equal(t, []string{
		events.VotingOpened,
		events.VotingClosed,
		events.VotingOpened,
		events.VotingClosed,
	}, recorder.Types())
	assert.Equal(t, 1, tu.CountRows(t, conn, "SELECT COUNT(*) FROM voting_config"))
}

func TestVotingConfigGatesVotes(t *testing.T) {
	conn := tu.SetupTestDB(t)
	cfg := tu.GetTestConfig()
	config := NewVotingConfigHandler(conn, cfg, events.Nop{})
	votes := NewVoteHandler(conn, cfg, events.Nop{}, middleware.NewMetrics())

	admin := tu.CreateTestUser(t, conn, models.RoleSuperAdmin)
	voter := tu.CreateTestUser(t, conn, models.RoleVoter)
	category := tu.CreateTestCategory(t, conn, "Révélation", false)
	candidate := tu.CreateTestCandidate(t, conn, category.ID, "Awa")
	vote := models.CastVoteRequest{UserID: voter.ID, CategoryID: category.ID, CandidateID: candidate.ID}

	setOpen := func(open bool) {
		w := httptest.NewRecorder()
		body := models.UpdateVotingConfigRequest{IsVotingOpen: open, BlockMessage: "Votes suspendus"}
		config.Update(w, tu.WithSession(tu.MakeRequest("POST", "/api/voting-config", body, nil), admin))
		tu.AssertStatus(t, w, http.StatusOK)
	}

	setOpen(false)
	w := httptest.NewRecorder()
	votes.Cast(w, tu.WithSession(tu.MakeRequest("POST", "/api/votes", vote, nil), voter))
	tu.AssertError(t, w, http.StatusForbidden, "Votes suspendus")

	setOpen(true)
	w = httptest.NewRecorder()
	votes.Cast(w, tu.WithSession(tu.MakeRequest("POST", "/api/votes", vote, nil), voter))
	tu.AssertStatus(t, w, http.StatusCreated)
}
