// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
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

type CategoryHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewCategoryHandler(db *sqlx.DB, cfg cliparse.Config) *CategoryHandler {
	return &CategoryHandler{db: db, cfg: cfg}
}

// List handles GET /api/categories
// Categories come back in creation order, each with its candidates.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := loadCategoriesWithCandidates(r.Context(), h.db)
	if err != nil {
		middleware.ServerError(w, r, "failed to list categories", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Le nom de la catégorie est requis")
		return
	}

	category := models.Category{
		ID:        auth.GenerateID(),
		Name:      strings.TrimSpace(*req.Name),
		CreatedAt: time.Now().UTC(),
	}
	if req.Subtitle != nil {
		category.Subtitle = *req.Subtitle
	}
	if req.Special != nil {
		category.Special = *req.Special
	}
	if req.IsLeadershipPrize != nil {
		category.IsLeadershipPrize = *req.IsLeadershipPrize
	}
	if req.PreAssignedWinner != nil {
		category.PreAssignedWinner = nullIfEmpty(*req.PreAssignedWinner)
	}

	if _, err := h.db.NamedExecContext(r.Context(), db.InsertCategorySQL, category); err != nil {
		middleware.ServerError(w, r, "failed to insert category", err)
		return
	}

	category.Candidates = []models.Candidate{}

	slog.Info("category created", "category_id", category.ID, "leadership", category.IsLeadershipPrize)

	middleware.JSONResponse(w, http.StatusCreated, category)
}

// Update handles PUT /api/categories
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	if req.ID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie requis")
		return
	}
	if !auth.ValidUUID(req.ID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie invalide")
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

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Le nom de la catégorie est requis")
			return
		}
		set("name", name)
	}
	if req.Subtitle != nil {
		set("subtitle", *req.Subtitle)
	}
	if req.Special != nil {
		set("special", *req.Special)
	}
	if req.IsLeadershipPrize != nil {
		set("is_leadership_prize", *req.IsLeadershipPrize)
	}
	if req.PreAssignedWinner != nil {
		set("pre_assigned_winner", nullIfEmpty(*req.PreAssignedWinner))
	}

	if len(sets) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Aucune modification fournie")
		return
	}

	args = append(args, req.ID)
	result, err := h.db.ExecContext(r.Context(),
		h.db.Rebind("UPDATE categories SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		middleware.ServerError(w, r, "failed to update category", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Catégorie non trouvée")
		return
	}

	var category models.Category
	err = h.db.GetContext(r.Context(), &category,
		h.db.Rebind("SELECT "+db.CategoryColumns+" FROM categories WHERE id = ?"), req.ID)
	if err != nil {
		middleware.ServerError(w, r, "failed to reload category", err)
		return
	}

	category.Candidates = []models.Candidate{}
	err = h.db.SelectContext(r.Context(), &category.Candidates,
		h.db.Rebind("SELECT "+db.CandidateColumns+" FROM candidates WHERE category_id = ? ORDER BY created_at"), req.ID)
	if err != nil {
		middleware.ServerError(w, r, "failed to load candidates", err)
		return
	}

	slog.Info("category updated", "category_id", req.ID)

	middleware.JSONResponse(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories?id=
// Candidates and votes of the category are removed by cascade.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie requis")
		return
	}
	if !auth.ValidUUID(id) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID catégorie invalide")
		return
	}

	result, err := h.db.ExecContext(r.Context(), h.db.Rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		middleware.ServerError(w, r, "failed to delete category", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Catégorie non trouvée")
		return
	}

	slog.Info("category deleted", "category_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Catégorie supprimée avec succès"})
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// loadCategory returns sql.ErrNoRows when the category does not exist.
func loadCategory(ctx context.Context, q queryer, id string) (models.Category, error) {
	var category models.Category
	err := sqlx.GetContext(ctx, q, &category, q.Rebind("SELECT "+db.CategoryColumns+" FROM categories WHERE id = ?"), id)
	return category, err
}

func loadCategoriesWithCandidates(ctx context.Context, conn *sqlx.DB) ([]models.Category, error) {
	categories := []models.Category{}
	if err := conn.SelectContext(ctx, &categories,
		"SELECT "+db.CategoryColumns+" FROM categories ORDER BY created_at, name"); err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	if err := conn.SelectContext(ctx, &candidates,
		"SELECT "+db.CandidateColumns+" FROM candidates ORDER BY created_at, name"); err != nil {
		return nil, err
	}

	byCategory := make(map[string][]models.Candidate, len(categories))
	for _, c := range candidates {
		byCategory[c.CategoryID] = append(byCategory[c.CategoryID], c)
	}
	for i := range categories {
		categories[i].Candidates = byCategory[categories[i].ID]
		if categories[i].Candidates == nil {
			categories[i].Candidates = []models.Candidate{}
		}
	}
	return categories, nil
}
