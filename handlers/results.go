// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math"
	"net/http"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

type ResultsHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sqlx.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetResults handles GET /api/results
// Results are recomputed from the full vote set on every call.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	categories, err := loadCategoriesWithCandidates(r.Context(), h.db)
	if err != nil {
		middleware.ServerError(w, r, "failed to load categories", err)
		return
	}

	var votes []models.Vote
	if err := h.db.SelectContext(r.Context(), &votes, "SELECT "+db.VoteColumns+" FROM votes"); err != nil {
		middleware.ServerError(w, r, "failed to load votes", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, ComputeResults(categories, votes))
}

// ComputeResults tallies votes per candidate for every category that is
// open to voting. Candidates are ranked by vote count; ties keep the
// category's candidate order. A category's total includes votes whose
// candidate is no longer listed, so percentages can sum below 100.
// Top-level totals cover the tallied categories only.
func ComputeResults(categories []models.Category, votes []models.Vote) models.ResultsResponse {
	byCategory := make(map[string][]models.Vote)
	for _, v := range votes {
		byCategory[v.CategoryID] = append(byCategory[v.CategoryID], v)
	}

	out := models.ResultsResponse{Categories: []models.CategoryResult{}}
	voters := make(map[string]struct{})

	for _, category := range categories {
		if category.IsLeadershipPrize {
			continue
		}

		categoryVotes := byCategory[category.ID]
		for _, v := range categoryVotes {
			voters[v.UserID] = struct{}{}
		}
		out.TotalVotes += len(categoryVotes)

		counts := make(map[string]int, len(category.Candidates))
		for _, c := range category.Candidates {
			counts[c.ID] = 0
		}
		for _, v := range categoryVotes {
			if _, ok := counts[v.CandidateID]; ok {
				counts[v.CandidateID]++
			}
		}

		total := len(categoryVotes)
		results := make([]models.CandidateResult, 0, len(category.Candidates))
		for _, c := range category.Candidates {
			results = append(results, models.CandidateResult{
				CandidateID: c.ID,
				Name:        c.Name,
				Image:       c.Image,
				Votes:       counts[c.ID],
				Percentage:  percentage(counts[c.ID], total),
			})
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Votes > results[j].Votes
		})

		out.Categories = append(out.Categories, models.CategoryResult{
			CategoryID: category.ID,
			Name:       category.Name,
			TotalVotes: total,
			Results:    results,
		})
	}
	out.UniqueVoters = len(voters)

	return out
}

// percentage is rounded to one decimal place.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
