// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

// recentVotesWindow is how many of the latest votes feed the average
// time between a voter's consecutive votes.
const recentVotesWindow = 100

type StatsHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
	now func() time.Time
}

func NewStatsHandler(db *sqlx.DB, cfg cliparse.Config) *StatsHandler {
	return &StatsHandler{db: db, cfg: cfg, now: time.Now}
}

type voteTime struct {
	UserID  string `db:"user_id"`
	VotedAt int64  `db:"voted_at"`
}

// Voting handles GET /api/stats/voting
func (h *StatsHandler) Voting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := models.VotingStats{CategoryStats: map[string]int{}}

	err := h.db.GetContext(ctx, &stats.TotalUsers,
		h.db.Rebind("SELECT COUNT(*) FROM users WHERE role <> ?"), models.RoleSuperAdmin)
	if err != nil {
		middleware.ServerError(w, r, "failed to count users", err)
		return
	}

	if err := h.db.GetContext(ctx, &stats.TotalVotes, "SELECT COUNT(*) FROM votes"); err != nil {
		middleware.ServerError(w, r, "failed to count votes", err)
		return
	}

	now := h.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var today []voteTime
	err = h.db.SelectContext(ctx, &today,
		h.db.Rebind("SELECT user_id, voted_at FROM votes WHERE voted_at >= ?"), midnight.Unix())
	if err != nil {
		middleware.ServerError(w, r, "failed to load today's votes", err)
		return
	}
	stats.TodayVotes = len(today)
	voters := make(map[string]struct{}, len(today))
	for _, v := range today {
		voters[v.UserID] = struct{}{}
	}
	stats.UniqueTodayVoters = len(voters)

	var recent []voteTime
	err = h.db.SelectContext(ctx, &recent,
		h.db.Rebind("SELECT user_id, voted_at FROM votes ORDER BY voted_at DESC LIMIT ?"), recentVotesWindow)
	if err != nil {
		middleware.ServerError(w, r, "failed to load recent votes", err)
		return
	}
	gap := averageVoteGap(recent)
	stats.AverageTimeMinutes = int64(math.Round(gap.Minutes()))
	stats.AverageTimeHuman = humanizeGap(gap)

	var perCategory []struct {
		CategoryID string `db:"category_id"`
		Votes      int    `db:"votes"`
	}
	err = h.db.SelectContext(ctx, &perCategory,
		"SELECT category_id, COUNT(*) AS votes FROM votes GROUP BY category_id ORDER BY category_id")
	if err != nil {
		middleware.ServerError(w, r, "failed to count votes per category", err)
		return
	}
	best := 0
	for _, c := range perCategory {
		stats.CategoryStats[c.CategoryID] = c.Votes
		if c.Votes > best {
			best = c.Votes
			id := c.CategoryID
			stats.MostVotedCategory = &id
		}
	}

	middleware.JSONResponse(w, http.StatusOK, stats)
}

// averageVoteGap groups votes by voter and averages the intervals between
// each voter's consecutive votes. Zero when no voter has two votes.
func averageVoteGap(votes []voteTime) time.Duration {
	byUser := make(map[string][]int64)
	for _, v := range votes {
		byUser[v.UserID] = append(byUser[v.UserID], v.VotedAt)
	}

	var total, count int64
	for _, times := range byUser {
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
		for i := 1; i < len(times); i++ {
			total += times[i] - times[i-1]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return time.Duration(float64(total) / float64(count) * float64(time.Second))
}

func humanizeGap(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	base := time.Unix(0, 0)
	return strings.TrimSpace(humanize.RelTime(base, base.Add(d), "", ""))
}
