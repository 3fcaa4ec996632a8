// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

// notificationsLimit caps the inbox returned by List.
const notificationsLimit = 50

const (
	votingOpenedTitle   = "🗳️ Votes ouverts !"
	votingOpenedMessage = "Les votes sont maintenant ouverts. Vous pouvez maintenant voter pour vos candidats préférés."
)

type NotificationHandler struct {
	db     *sqlx.DB
	cfg    cliparse.Config
	events events.Publisher
}

func NewNotificationHandler(db *sqlx.DB, cfg cliparse.Config, publisher events.Publisher) *NotificationHandler {
	return &NotificationHandler{db: db, cfg: cfg, events: publisher}
}

// List handles GET /api/notifications?userId=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	userID := r.URL.Query().Get("userId")
	if !h.authorizeUser(w, session, userID) {
		return
	}

	notifications := []models.Notification{}
	err := h.db.SelectContext(r.Context(), &notifications, h.db.Rebind(`
		SELECT `+db.NotificationColumns+`
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`), userID, notificationsLimit)
	if err != nil {
		middleware.ServerError(w, r, "failed to list notifications", err, "user_id", userID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.NotificationsResponse{Notifications: notifications})
}

// MarkRead handles POST /api/notifications/read
// Only the owner (or an administrator) can flip a notification.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	var req models.MarkReadRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}
	if req.NotificationID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID notification requis")
		return
	}
	if !auth.ValidUUID(req.NotificationID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID notification invalide")
		return
	}

	query := "UPDATE notifications SET is_read = ? WHERE id = ?"
	args := []any{true, req.NotificationID}
	if !session.IsAdmin() {
		query += " AND user_id = ?"
		args = append(args, session.UserID)
	}

	result, err := h.db.ExecContext(r.Context(), h.db.Rebind(query), args...)
	if err != nil {
		middleware.ServerError(w, r, "failed to mark notification read", err)
		return
	}
	// Rows owned by someone else look the same as missing ones.
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Notification non trouvée")
		return
	}

	var notification models.Notification
	err = h.db.GetContext(r.Context(), &notification,
		h.db.Rebind("SELECT "+db.NotificationColumns+" FROM notifications WHERE id = ?"), req.NotificationID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Notification non trouvée")
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to reload notification", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MarkReadResponse{Success: true, Notification: notification})
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	var req models.MarkAllReadRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}
	if !h.authorizeUser(w, session, req.UserID) {
		return
	}

	result, err := h.db.ExecContext(r.Context(),
		h.db.Rebind("UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?"),
		true, req.UserID, false)
	if err != nil {
		middleware.ServerError(w, r, "failed to mark notifications read", err, "user_id", req.UserID)
		return
	}
	n, err := result.RowsAffected()
	if err != nil {
		middleware.ServerError(w, r, "failed to read update result", err)
		return
	}

	slog.Info("notifications marked read", "user_id", req.UserID, "count", n)

	middleware.JSONResponse(w, http.StatusOK, models.MarkAllReadResponse{Success: true, MarkedAsRead: n})
}

// VotingOpened handles POST /api/notifications/voting-opened
// Every user receives a VOTING_OPENED notification; the inserts share one
// transaction so a failure leaves nobody notified.
func (h *NotificationHandler) VotingOpened(w http.ResponseWriter, r *http.Request) {
	var req models.VotingOpenedRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = votingOpenedMessage
	}

	data, err := json.Marshal(map[string]string{"eventId": req.EventID})
	if err != nil {
		middleware.ServerError(w, r, "failed to encode notification data", err)
		return
	}

	tx, err := h.db.BeginTxx(r.Context(), nil)
	if err != nil {
		middleware.ServerError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	var userIDs []string
	if err := tx.SelectContext(r.Context(), &userIDs, "SELECT id FROM users ORDER BY created_at"); err != nil {
		middleware.ServerError(w, r, "failed to list users", err)
		return
	}

	now := time.Now().UTC()
	for _, userID := range userIDs {
		notification := models.Notification{
			ID:        auth.GenerateID(),
			UserID:    userID,
			Type:      models.NotificationVotingOpened,
			Title:     votingOpenedTitle,
			Message:   message,
			Data:      data,
			CreatedAt: now,
		}
		if _, err := tx.NamedExecContext(r.Context(), db.InsertNotificationSQL, notification); err != nil {
			middleware.ServerError(w, r, "failed to insert notification", err, "user_id", userID)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		middleware.ServerError(w, r, "failed to commit notifications", err)
		return
	}

	publish(r.Context(), h.events, events.VotingNotices, map[string]any{
		"eventId": req.EventID,
		"count":   len(userIDs),
	})

	slog.Info("voting opened notifications sent", "event_id", req.EventID, "count", len(userIDs))

	middleware.JSONResponse(w, http.StatusOK, models.BroadcastResponse{
		Message: "Notifications envoyées avec succès",
		Count:   len(userIDs),
	})
}

// authorizeUser validates a userId parameter and checks that the session
// may act on that user's inbox. It writes the error response itself.
func (h *NotificationHandler) authorizeUser(w http.ResponseWriter, session middleware.Session, userID string) bool {
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID utilisateur requis")
		return false
	}
	if !auth.ValidUUID(userID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, msgInvalidUserID)
		return false
	}
	if userID != session.UserID && !session.IsAdmin() {
		middleware.ErrorResponse(w, http.StatusForbidden, "Action non autorisée")
		return false
	}
	return true
}
