// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

type CandidateHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewCandidateHandler(db *sqlx.DB, cfg cliparse.Config) *CandidateHandler {
	return &CandidateHandler{db: db, cfg: cfg}
}

// List handles GET /api/candidates[?categoryId=]
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("categoryId")

	query := "SELECT " + db.CandidateColumns + " FROM candidates"
	var args []any
	if categoryID != "" {
		if !auth.ValidUUID(categoryID) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie invalide")
			return
		}
		query += " WHERE category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY created_at, name"

	candidates := []models.Candidate{}
	if err := h.db.SelectContext(r.Context(), &candidates, h.db.Rebind(query), args...); err != nil {
		middleware.ServerError(w, r, "failed to list candidates", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// Create handles POST /api/candidates
func (h *CandidateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	if blank(req.CategoryID) || blank(req.Name) || blank(req.Image) || blank(req.Bio) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Catégorie, nom, image et bio sont requis")
		return
	}
	if !auth.ValidUUID(*req.CategoryID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie invalide")
		return
	}

	_, err := loadCategory(r.Context(), h.db, *req.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Catégorie introuvable")
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to load category", err)
		return
	}

	candidate := models.Candidate{
		ID:           auth.GenerateID(),
		CategoryID:   *req.CategoryID,
		Name:         strings.TrimSpace(*req.Name),
		Image:        *req.Image,
		Bio:          *req.Bio,
		Achievements: models.StringList{},
		CreatedAt:    time.Now().UTC(),
	}
	if req.Alias != nil {
		candidate.Alias = *req.Alias
	}
	if req.Achievements != nil {
		candidate.Achievements = *req.Achievements
	}
	if req.SongCount != nil {
		candidate.SongCount = *req.SongCount
	}
	if req.CandidateSong != nil {
		candidate.CandidateSong = *req.CandidateSong
	}
	if req.AudioFile != nil {
		candidate.AudioFile = *req.AudioFile
	}

	if _, err := h.db.NamedExecContext(r.Context(), db.InsertCandidateSQL, candidate); err != nil {
		middleware.ServerError(w, r, "failed to insert candidate", err)
		return
	}

	slog.Info("candidate created", "candidate_id", candidate.ID, "category_id", candidate.CategoryID)

	middleware.JSONResponse(w, http.StatusCreated, candidate)
}

// Update handles PUT /api/candidates
// Only fields present in the body are changed.
func (h *CandidateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	if req.ID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID candidat requis")
		return
	}
	if !auth.ValidUUID(req.ID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID candidat invalide")
		return
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if req.CategoryID != nil {
		if !auth.ValidUUID(*req.CategoryID) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie invalide")
			return
		}
		set("category_id", *req.CategoryID)
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Le nom du candidat est requis")
			return
		}
		set("name", strings.TrimSpace(*req.Name))
	}
	if req.Alias != nil {
		set("alias", *req.Alias)
	}
	if req.Image != nil {
		set("image", *req.Image)
	}
	if req.Bio != nil {
		set("bio", *req.Bio)
	}
	if req.Achievements != nil {
		set("achievements", *req.Achievements)
	}
	if req.SongCount != nil {
		set("song_count", *req.SongCount)
	}
	if req.CandidateSong != nil {
		set("candidate_song", *req.CandidateSong)
	}
	if req.AudioFile != nil {
		set("audio_file", *req.AudioFile)
	}

	if len(sets) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Aucune modification fournie")
		return
	}

	ctx := r.Context()
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		middleware.ServerError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	if req.CategoryID != nil {
		_, err := loadCategory(ctx, tx, *req.CategoryID)
		if errors.Is(err, sql.ErrNoRows) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Catégorie introuvable")
			return
		}
		if err != nil {
			middleware.ServerError(w, r, "failed to load category", err)
			return
		}

		// Votes keep their category; a candidate that already has votes
		// elsewhere cannot move without orphaning them.
		var voted bool
		err = tx.GetContext(ctx, &voted, tx.Rebind(`
			SELECT EXISTS(SELECT 1 FROM votes WHERE candidate_id = ? AND category_id <> ?)
		`), req.ID, *req.CategoryID)
		if err != nil {
			middleware.ServerError(w, r, "failed to check candidate votes", err)
			return
		}
		if voted {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Impossible de changer la catégorie d'un candidat qui a déjà reçu des votes")
			return
		}
	}

	args = append(args, req.ID)
	result, err := tx.ExecContext(ctx,
		tx.Rebind("UPDATE candidates SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		middleware.ServerError(w, r, "failed to update candidate", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidat non trouvé")
		return
	}

	var candidate models.Candidate
	err = tx.GetContext(ctx, &candidate,
		tx.Rebind("SELECT "+db.CandidateColumns+" FROM candidates WHERE id = ?"), req.ID)
	if err != nil {
		middleware.ServerError(w, r, "failed to reload candidate", err)
		return
	}

	if err := tx.Commit(); err != nil {
		middleware.ServerError(w, r, "failed to commit candidate update", err)
		return
	}

	slog.Info("candidate updated", "candidate_id", req.ID, "fields", len(sets))

	middleware.JSONResponse(w, http.StatusOK, candidate)
}

// Delete handles DELETE /api/candidates?id=
func (h *CandidateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID candidat requis")
		return
	}
	if !auth.ValidUUID(id) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID candidat invalide")
		return
	}

	result, err := h.db.ExecContext(r.Context(), h.db.Rebind("DELETE FROM candidates WHERE id = ?"), id)
	if err != nil {
		middleware.ServerError(w, r, "failed to delete candidate", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidat non trouvé")
		return
	}

	slog.Info("candidate deleted", "candidate_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Candidat supprimé avec succès"})
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
