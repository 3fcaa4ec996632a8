// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/blobstore"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/handlers"
	"github.com/bankass-awards/server/middleware"
)

// Deps are the collaborators shared by the handlers. Zero values fall
// back to a local upload directory, a no-op publisher and fresh metrics.
type Deps struct {
	Store   blobstore.Store
	Events  events.Publisher
	Metrics *middleware.Metrics
}

func NewRouter(db *sqlx.DB, cfg cliparse.Config, deps Deps) *http.ServeMux {
	if deps.Store == nil {
		deps.Store = blobstore.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = middleware.NewMetrics()
	}

	mux := http.NewServeMux()

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	authn := middleware.NewAuthenticator(sessions, db)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(db, cfg, sessions)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)
	candidateHandler := handlers.NewCandidateHandler(db, cfg)
	voteHandler := handlers.NewVoteHandler(db, cfg, deps.Events, deps.Metrics)
	votingConfigHandler := handlers.NewVotingConfigHandler(db, cfg, deps.Events)
	notificationHandler := handlers.NewNotificationHandler(db, cfg, deps.Events)
	statsHandler := handlers.NewStatsHandler(db, cfg)
	uploadHandler := handlers.NewUploadHandler(cfg, deps.Store)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(deps.Metrics.Instrument(pattern, h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	// Accounts and sessions
	handle("POST /api/users", userHandler.Signup)
	handle("POST /api/auth/login", userHandler.Login)
	handle("GET /api/auth/me", authn.RequireSession(userHandler.Me))
	handle("GET /api/users", authn.RequireAdmin(userHandler.List))
	handle("PUT /api/users", authn.RequireSession(userHandler.Update))
	handle("DELETE /api/users", authn.RequireAdmin(userHandler.Delete))

	// Catalogue (public reads, admin writes)
	handle("GET /api/categories", categoryHandler.List)
	handle("POST /api/categories", authn.RequireAdmin(categoryHandler.Create))
	handle("PUT /api/categories", authn.RequireAdmin(categoryHandler.Update))
	handle("DELETE /api/categories", authn.RequireAdmin(categoryHandler.Delete))

	handle("GET /api/candidates", candidateHandler.List)
	handle("POST /api/candidates", authn.RequireAdmin(candidateHandler.Create))
	handle("PUT /api/candidates", authn.RequireAdmin(candidateHandler.Update))
	handle("DELETE /api/candidates", authn.RequireAdmin(candidateHandler.Delete))

	// Voting
	handle("GET /api/votes", authn.RequireSession(voteHandler.List))
	handle("POST /api/votes", authn.RequireSession(voteHandler.Cast))
	handle("DELETE /api/votes", authn.RequireAdmin(voteHandler.Delete))

	handle("GET /api/voting-config", votingConfigHandler.Get)
	handle("POST /api/voting-config", authn.RequireAdmin(votingConfigHandler.Update))

	handle("GET /api/results", resultsHandler.GetResults)
	handle("GET /api/stats/voting", authn.RequireAdmin(statsHandler.Voting))

	// Notifications
	handle("GET /api/notifications", authn.RequireSession(notificationHandler.List))
	handle("POST /api/notifications/read", authn.RequireSession(notificationHandler.MarkRead))
	handle("POST /api/notifications/read-all", authn.RequireSession(notificationHandler.MarkAllRead))
	handle("POST /api/notifications/voting-opened", authn.RequireAdmin(notificationHandler.VotingOpened))

	// Uploads
	handle("POST /api/simple-upload", authn.RequireAdmin(uploadHandler.SimpleUpload))
	if local, ok := deps.Store.(*blobstore.Local); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Bankass Awards API v1"))
	})

	return mux
}
