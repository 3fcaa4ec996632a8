// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Sessions

	authn := middleware.NewAuthenticator(sessions, db)
	mux.HandleFunc("GET /api/auth/me", authn.RequireSession(h.Me))
	mux.HandleFunc("GET /api/users", authn.RequireAdmin(h.List))

Tokens arrive as "Authorization: Bearer <token>".

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Every request gets an X-Request-Id, echoed in the response and in logs.

# Metrics

Metrics.Instrument counts requests per route pattern. Metrics.Handler
serves the registry for Prometheus.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.ServerError(w, r, "failed to load votes", err)

ServerError logs the cause and answers a generic 500.
*/
package middleware
