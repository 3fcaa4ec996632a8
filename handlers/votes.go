// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

const (
	msgVoteFieldsRequired = "Tous les champs sont requis"
	msgInvalidUserID      = "ID utilisateur invalide"
	msgAlreadyVoted       = "Vous avez déjà voté dans cette catégorie"
)

// maxUserAgentLength bounds the stored User-Agent header.
const maxUserAgentLength = 512

type VoteHandler struct {
	db      *sqlx.DB
	cfg     cliparse.Config
	events  events.Publisher
	metrics *middleware.Metrics
}

func NewVoteHandler(db *sqlx.DB, cfg cliparse.Config, publisher events.Publisher, metrics *middleware.Metrics) *VoteHandler {
	return &VoteHandler{db: db, cfg: cfg, events: publisher, metrics: metrics}
}

// Cast handles POST /api/votes
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentification requise")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	// Validate input before touching the store
	if req.UserID == "" || req.CategoryID == "" || req.CandidateID == "" {
		h.reject(w, "missing_fields", http.StatusBadRequest, msgVoteFieldsRequired)
		return
	}
	if !auth.ValidUUID(req.UserID) {
		h.reject(w, "invalid_id", http.StatusBadRequest, msgInvalidUserID)
		return
	}
	if !auth.ValidUUID(req.CategoryID) {
		h.reject(w, "invalid_id", http.StatusBadRequest, "ID catégorie invalide")
		return
	}
	if !auth.ValidUUID(req.CandidateID) {
		h.reject(w, "invalid_id", http.StatusBadRequest, "ID candidat invalide")
		return
	}
	if req.UserID != session.UserID {
		h.reject(w, "forbidden", http.StatusForbidden, "Vous ne pouvez voter qu'en votre nom")
		return
	}

	tx, err := h.db.BeginTxx(r.Context(), nil)
	if err != nil {
		middleware.ServerError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	config, err := loadVotingConfig(r.Context(), tx)
	if err != nil {
		middleware.ServerError(w, r, "failed to load voting config", err)
		return
	}
	if !config.IsVotingOpen {
		msg := config.BlockMessage
		if msg == "" {
			msg = models.DefaultBlockMessage
		}
		h.reject(w, "closed", http.StatusForbidden, msg)
		return
	}

	category, err := loadCategory(r.Context(), tx, req.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		h.reject(w, "unknown_category", http.StatusBadRequest, "Catégorie introuvable")
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to load category", err)
		return
	}
	if category.IsLeadershipPrize {
		h.reject(w, "leadership_category", http.StatusBadRequest, "Cette catégorie n'est pas ouverte au vote")
		return
	}

	var candidate models.Candidate
	err = tx.GetContext(r.Context(), &candidate,
		tx.Rebind("SELECT "+db.CandidateColumns+" FROM candidates WHERE id = ?"), req.CandidateID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && candidate.CategoryID != category.ID) {
		h.reject(w, "unknown_candidate", http.StatusBadRequest, "Candidat introuvable dans cette catégorie")
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to load candidate", err)
		return
	}

	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt)
	userAgent := r.UserAgent()
	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}

	vote := models.Vote{
		ID:            auth.GenerateID(),
		UserID:        session.UserID,
		CategoryID:    category.ID,
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		Timestamp:     time.Now().Unix(),
		IPHash:        &ipHash,
		UserAgent:     nullIfEmpty(userAgent),
	}

	// Insert-if-absent; the unique constraint decides between concurrent
	// submissions for the same (user, category).
	result, err := tx.NamedExecContext(r.Context(), db.InsertVoteIfAbsentSQL, vote)
	if err != nil {
		if db.IsUniqueViolation(err) {
			h.reject(w, "duplicate", http.StatusBadRequest, msgAlreadyVoted)
			return
		}
		middleware.ServerError(w, r, "failed to insert vote", err)
		return
	}
	n, err := result.RowsAffected()
	if err != nil {
		middleware.ServerError(w, r, "failed to read insert result", err)
		return
	}
	if n == 0 {
		h.reject(w, "duplicate", http.StatusBadRequest, msgAlreadyVoted)
		return
	}

	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			h.reject(w, "duplicate", http.StatusBadRequest, msgAlreadyVoted)
			return
		}
		middleware.ServerError(w, r, "failed to commit vote", err)
		return
	}

	h.metrics.VotesCast.Inc()
	publish(r.Context(), h.events, events.VoteCast, vote)

	slog.Info("vote cast",
		"vote_id", vote.ID,
		"user_id", vote.UserID,
		"category_id", vote.CategoryID,
		"candidate_id", vote.CandidateID,
	)

	middleware.JSONResponse(w, http.StatusCreated, vote)
}

// List handles GET /api/votes[?categoryId=]
// Administrators see every vote; voters only see their own.
func (h *VoteHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	query := "SELECT " + db.VoteColumns + " FROM votes WHERE 1 = 1"
	var args []any

	if !session.IsAdmin() {
		query += " AND user_id = ?"
		args = append(args, session.UserID)
	}
	if categoryID := r.URL.Query().Get("categoryId"); categoryID != "" {
		if !auth.ValidUUID(categoryID) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie invalide")
			return
		}
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY voted_at DESC, id"

	votes := []models.Vote{}
	if err := h.db.SelectContext(r.Context(), &votes, h.db.Rebind(query), args...); err != nil {
		middleware.ServerError(w, r, "failed to list votes", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, votes)
}

// Delete handles DELETE /api/votes?id=
func (h *VoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID vote requis")
		return
	}
	if !auth.ValidUUID(id) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID vote invalide")
		return
	}

	result, err := h.db.ExecContext(r.Context(), h.db.Rebind("DELETE FROM votes WHERE id = ?"), id)
	if err != nil {
		middleware.ServerError(w, r, "failed to delete vote", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Vote non trouvé")
		return
	}

	slog.Info("vote deleted", "vote_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Vote supprimé avec succès"})
}

func (h *VoteHandler) reject(w http.ResponseWriter, reason string, status int, msg string) {
	h.metrics.VotesRejected.WithLabelValues(reason).Inc()
	middleware.ErrorResponse(w, status, msg)
}

// publish emits an event without failing the request that produced it.
func publish(ctx context.Context, p events.Publisher, eventType string, data any) {
	if err := p.Publish(ctx, eventType, data); err != nil {
		slog.Warn("failed to publish event", "type", eventType, "error", err)
	}
}
