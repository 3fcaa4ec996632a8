// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Bankass Awards API.

Each handler is a struct built with its dependencies:

	voteHandler := handlers.NewVoteHandler(db, cfg, publisher, metrics)

Handlers behind RequireSession read the caller with
middleware.SessionFromContext. Error bodies are {"error": "..."} with a
French, user-facing message.

# Voting

Cast runs in one transaction: it reads the voting configuration, checks
the category and candidate, then inserts with ON CONFLICT DO NOTHING. The
unique (user_id, category_id) constraint decides between concurrent
submissions, so a voter has at most one vote per category.

# Results

ComputeResults tallies by candidate ID and ranks candidates by votes.
Leadership prize categories are excluded.
*/
package handlers
