// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/models"
)

// Session is the server-verified identity of the caller.
type Session struct {
	UserID string
	Role   string
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleSuperAdmin
}

type sessionKey struct{}

// SessionFromContext returns the session attached by RequireSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// WithSession attaches s to ctx. Used by RequireSession and by tests that
// call handlers directly.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// Authenticator validates bearer tokens. The role is re-read from the
// users table on every request so demotions and deletions take effect
// before the token expires.
type Authenticator struct {
	sessions *auth.Sessions
	db       *sqlx.DB
}

func NewAuthenticator(sessions *auth.Sessions, db *sqlx.DB) *Authenticator {
	return &Authenticator{sessions: sessions, db: db}
}

// RequireSession rejects requests without a valid bearer token.
func (a *Authenticator) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, status, msg := a.authenticate(r)
		if status != 0 {
			ErrorResponse(w, status, msg)
			return
		}
		next(w, r.WithContext(WithSession(r.Context(), session)))
	}
}

// RequireAdmin rejects requests whose session is not SUPER_ADMIN.
func (a *Authenticator) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFromContext(r.Context())
		if !session.IsAdmin() {
			ErrorResponse(w, http.StatusForbidden, "Accès réservé aux administrateurs")
			return
		}
		next(w, r)
	})
}

func (a *Authenticator) authenticate(r *http.Request) (Session, int, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Session{}, http.StatusUnauthorized, "Authentification requise"
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return Session{}, http.StatusUnauthorized, "Format du jeton invalide"
	}

	claims, err := a.sessions.Parse(token)
	if err != nil {
		return Session{}, http.StatusUnauthorized, "Session invalide ou expirée"
	}

	var role string
	err = a.db.GetContext(r.Context(), &role, a.db.Rebind("SELECT role FROM users WHERE id = ?"), claims.UserID())
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, http.StatusUnauthorized, "Session invalide ou expirée"
	}
	if err != nil {
		slog.Error("failed to load session user", "error", err, "user_id", claims.UserID())
		return Session{}, http.StatusInternalServerError, "Erreur serveur"
	}

	return Session{UserID: claims.UserID(), Role: role}, 0, ""
}
