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

	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

type VotingConfigHandler struct {
	db     *sqlx.DB
	cfg    cliparse.Config
	events events.Publisher
}

func NewVotingConfigHandler(db *sqlx.DB, cfg cliparse.Config, publisher events.Publisher) *VotingConfigHandler {
	return &VotingConfigHandler{db: db, cfg: cfg, events: publisher}
}

// Get handles GET /api/voting-config
// The default configuration is returned until an administrator saves one.
func (h *VotingConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	config, err := loadVotingConfig(r.Context(), h.db)
	if err != nil {
		middleware.ServerError(w, r, "failed to load voting config", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, h.response(config))
}

// Update handles POST /api/voting-config
func (h *VotingConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateVotingConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	tx, err := h.db.BeginTxx(r.Context(), nil)
	if err != nil {
		middleware.ServerError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	previous, err := loadVotingConfig(r.Context(), tx)
	if err != nil {
		middleware.ServerError(w, r, "failed to load voting config", err)
		return
	}

	_, err = tx.NamedExecContext(r.Context(), db.UpsertVotingConfigSQL, map[string]any{
		"id":             models.VotingConfigID,
		"current_event":  req.CurrentEvent,
		"is_voting_open": req.IsVotingOpen,
		"block_message":  req.BlockMessage,
		"updated_at":     time.Now().UTC(),
	})
	if err != nil {
		middleware.ServerError(w, r, "failed to save voting config", err)
		return
	}

	config, err := loadVotingConfig(r.Context(), tx)
	if err != nil {
		middleware.ServerError(w, r, "failed to reload voting config", err)
		return
	}

	if err := tx.Commit(); err != nil {
		middleware.ServerError(w, r, "failed to commit voting config", err)
		return
	}

	if previous.IsVotingOpen != config.IsVotingOpen {
		eventType := events.VotingClosed
		if config.IsVotingOpen {
			eventType = events.VotingOpened
		}
		publish(r.Context(), h.events, eventType, config)
	}

	slog.Info("voting config updated",
		"is_voting_open", config.IsVotingOpen,
		"was_open", previous.IsVotingOpen,
	)

	middleware.JSONResponse(w, http.StatusOK, h.response(config))
}

func (h *VotingConfigHandler) response(config models.VotingConfig) models.VotingConfigResponse {
	return models.VotingConfigResponse{
		VotingConfig:        config,
		PollIntervalSeconds: int(h.cfg.PollInterval / time.Second),
	}
}

// loadVotingConfig returns the singleton row, or the default when none
// has been saved yet.
func loadVotingConfig(ctx context.Context, q queryer) (models.VotingConfig, error) {
	var config models.VotingConfig
	err := sqlx.GetContext(ctx, q, &config, q.Rebind(`
		SELECT current_event, is_voting_open, block_message, created_at, updated_at
		FROM voting_config WHERE id = ?
	`), models.VotingConfigID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultVotingConfig(), nil
	}
	return config, err
}
