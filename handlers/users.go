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

const msgBadCredentials = "Identifiant ou mot de passe incorrect"

type UserHandler struct {
	db       *sqlx.DB
	cfg      cliparse.Config
	sessions *auth.Sessions
}

func NewUserHandler(db *sqlx.DB, cfg cliparse.Config, sessions *auth.Sessions) *UserHandler {
	return &UserHandler{db: db, cfg: cfg, sessions: sessions}
}

// Signup handles POST /api/users
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Domain = strings.TrimSpace(req.Domain)
	req.City = strings.TrimSpace(req.City)
	if req.Name == "" || req.Password == "" || req.Domain == "" || req.City == "" ||
		(strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.Phone) == "") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Tous les champs sont obligatoires")
		return
	}

	email, phone, msg := normalizeContact(req.Email, req.Phone)
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Le mot de passe doit contenir au moins 6 caractères")
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to hash password", err)
		return
	}

	if msg, err := h.contactTaken(r, "", email, phone); err != nil {
		middleware.ServerError(w, r, "failed to check existing user", err)
		return
	} else if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	user := models.User{
		ID:           auth.GenerateID(),
		Name:         req.Name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         models.RoleVoter,
		Domain:       req.Domain,
		City:         req.City,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := h.db.NamedExecContext(r.Context(), db.InsertUserSQL, user); err != nil {
		// Lost a race with a concurrent signup for the same contact.
		if db.IsUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Cet email ou ce numéro de téléphone est déjà utilisé")
			return
		}
		middleware.ServerError(w, r, "failed to insert user", err)
		return
	}

	token, err := h.sessions.Issue(user.ID, user.Role)
	if err != nil {
		middleware.ServerError(w, r, "failed to issue session", err)
		return
	}

	slog.Info("user registered", "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.LoginResponse{User: user, Token: token})
}

// Login handles POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if (email == "" && strings.TrimSpace(req.Phone) == "") || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Identifiant et mot de passe requis")
		return
	}

	var (
		query string
		arg   string
	)
	if email != "" {
		query, arg = "SELECT "+db.UserColumns+" FROM users WHERE email = ?", email
	} else {
		phone, err := auth.NormalizePhone(req.Phone)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusUnauthorized, msgBadCredentials)
			return
		}
		query, arg = "SELECT "+db.UserColumns+" FROM users WHERE phone = ?", phone
	}

	var user models.User
	err := h.db.GetContext(r.Context(), &user, h.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to load user", err)
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}

	token, err := h.sessions.Issue(user.ID, user.Role)
	if err != nil {
		middleware.ServerError(w, r, "failed to issue session", err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{User: user, Token: token})
}

// Me handles GET /api/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	user, err := h.loadUser(r, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}
	if err != nil {
		middleware.ServerError(w, r, "failed to load user", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users := []models.User{}
	err := h.db.SelectContext(r.Context(), &users, "SELECT "+db.UserColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		middleware.ServerError(w, r, "failed to list users", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, users)
}

// Update handles PUT /api/users
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	var req models.UpdateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "JSON invalide")
		return
	}

	if req.ID == "" {
		req.ID = session.UserID
	}
	if !auth.ValidUUID(req.ID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID utilisateur invalide")
		return
	}
	if req.ID != session.UserID && !session.IsAdmin() {
		middleware.ErrorResponse(w, http.StatusForbidden, "Action non autorisée")
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
			middleware.ErrorResponse(w, http.StatusBadRequest, "Le nom est requis")
			return
		}
		set("name", name)
	}
	if req.Domain != nil {
		set("domain", strings.TrimSpace(*req.Domain))
	}
	if req.City != nil {
		set("city", strings.TrimSpace(*req.City))
	}
	if req.ProfilePhoto != nil {
		set("profile_photo", nullIfEmpty(*req.ProfilePhoto))
	}

	var newEmail, newPhone *string
	if req.Email != nil || req.Phone != nil {
		var rawEmail, rawPhone string
		if req.Email != nil {
			rawEmail = *req.Email
		}
		if req.Phone != nil {
			rawPhone = *req.Phone
		}
		email, phone, msg := normalizeContact(rawEmail, rawPhone)
		if msg != "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, msg)
			return
		}
		// An empty value clears the field; at least one contact must remain.
		clearEmail := req.Email != nil && email == nil
		clearPhone := req.Phone != nil && phone == nil
		if req.Email != nil {
			newEmail = email
			set("email", email)
		}
		if req.Phone != nil {
			newPhone = phone
			set("phone", phone)
		}

		if clearEmail || clearPhone {
			current, err := h.loadUser(r, req.ID)
			if errors.Is(err, sql.ErrNoRows) {
				middleware.ErrorResponse(w, http.StatusNotFound, "Utilisateur non trouvé")
				return
			}
			if err != nil {
				middleware.ServerError(w, r, "failed to load user", err)
				return
			}
			hasEmail := newEmail != nil || (!clearEmail && current.Email != nil)
			hasPhone := newPhone != nil || (!clearPhone && current.Phone != nil)
			if !hasEmail && !hasPhone {
				middleware.ErrorResponse(w, http.StatusBadRequest, "Un email ou un numéro de téléphone est requis")
				return
			}
		}
	}

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if errors.Is(err, auth.ErrWeakPassword) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Le mot de passe doit contenir au moins 6 caractères")
			return
		}
		if err != nil {
			middleware.ServerError(w, r, "failed to hash password", err)
			return
		}
		set("password_hash", hash)
	}

	if req.Role != nil {
		if !session.IsAdmin() {
			middleware.ErrorResponse(w, http.StatusForbidden, "Seul un administrateur peut modifier le rôle")
			return
		}
		if *req.Role != models.RoleVoter && *req.Role != models.RoleSuperAdmin {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Rôle invalide")
			return
		}
		set("role", *req.Role)
	}

	if len(sets) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Aucune modification fournie")
		return
	}

	if msg, err := h.contactTaken(r, req.ID, newEmail, newPhone); err != nil {
		middleware.ServerError(w, r, "failed to check existing user", err)
		return
	} else if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	args = append(args, req.ID)
	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := h.db.ExecContext(r.Context(), h.db.Rebind(query), args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Cet email ou ce numéro de téléphone est déjà utilisé")
			return
		}
		middleware.ServerError(w, r, "failed to update user", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}

	user, err := h.loadUser(r, req.ID)
	if err != nil {
		middleware.ServerError(w, r, "failed to reload user", err)
		return
	}

	slog.Info("user updated", "user_id", user.ID, "by", session.UserID)

	middleware.JSONResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users?id=
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID utilisateur requis")
		return
	}
	if !auth.ValidUUID(id) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ID utilisateur invalide")
		return
	}
	if id == session.UserID {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Impossible de supprimer votre propre compte")
		return
	}

	result, err := h.db.ExecContext(r.Context(), h.db.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		middleware.ServerError(w, r, "failed to delete user", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}

	slog.Info("user deleted", "user_id", id, "by", session.UserID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Utilisateur supprimé avec succès"})
}

func (h *UserHandler) loadUser(r *http.Request, id string) (models.User, error) {
	var user models.User
	err := h.db.GetContext(r.Context(), &user, h.db.Rebind("SELECT "+db.UserColumns+" FROM users WHERE id = ?"), id)
	return user, err
}

// contactTaken reports a user-facing message when email or phone already
// belongs to an account other than excludeID.
func (h *UserHandler) contactTaken(r *http.Request, excludeID string, email, phone *string) (string, error) {
	check := func(column, value string) (bool, error) {
		var exists bool
		err := h.db.GetContext(r.Context(), &exists, h.db.Rebind(
			"SELECT EXISTS(SELECT 1 FROM users WHERE "+column+" = ? AND id <> ?)"), value, excludeID)
		return exists, err
	}

	if email != nil {
		taken, err := check("email", *email)
		if err != nil || taken {
			return "Cet email est déjà utilisé. Veuillez vous connecter.", err
		}
	}
	if phone != nil {
		taken, err := check("phone", *phone)
		if err != nil || taken {
			return "Ce numéro de téléphone est déjà utilisé. Veuillez vous connecter.", err
		}
	}
	return "", nil
}

// normalizeContact validates and normalizes the optional email and phone.
// A non-empty message means the input was rejected.
func normalizeContact(rawEmail, rawPhone string) (email, phone *string, msg string) {
	if e := auth.NormalizeEmail(rawEmail); e != "" {
		if !auth.ValidEmail(e) {
			return nil, nil, "Veuillez entrer une adresse email valide"
		}
		email = &e
	}
	if strings.TrimSpace(rawPhone) != "" {
		p, err := auth.NormalizePhone(rawPhone)
		if err != nil {
			return nil, nil, "Veuillez entrer un numéro de téléphone malien valide (8 chiffres)"
		}
		phone = &p
	}
	return email, phone, ""
}

func nullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
