// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Bankass Awards API.

	mux := router.NewRouter(db, cfg, router.Deps{Store: store, Events: publisher})

# Endpoints

Public:

	GET  /health
	GET  /metrics
	POST /api/users             - Sign up
	POST /api/auth/login        - Log in
	GET  /api/categories        - Categories with candidates
	GET  /api/candidates        - Candidates (?categoryId=)
	GET  /api/voting-config     - Voting window state
	GET  /api/results           - Live results

Signed in:

	GET    /api/auth/me
	PUT    /api/users
	GET    /api/votes
	POST   /api/votes
	GET    /api/notifications
	POST   /api/notifications/read
	POST   /api/notifications/read-all

Administrators:

	GET    /api/users
	DELETE /api/users
	POST, PUT, DELETE /api/categories
	POST, PUT, DELETE /api/candidates
	DELETE /api/votes
	POST   /api/voting-config
	GET    /api/stats/voting
	POST   /api/notifications/voting-opened
	POST   /api/simple-upload
*/
package router
