// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and owns the schema.

Two drivers are supported behind sqlx: modernc.org/sqlite for development
and tests, lib/pq for production. Queries are written with ? placeholders
and passed through Rebind.

	conn, err := db.Open(ctx, cfg)
	err = db.CreateSchema(ctx, conn)

# Tables

	users         accounts, unique email and phone
	categories    award categories
	candidates    nominees, one category each
	votes         UNIQUE (user_id, category_id)
	notifications per-user inbox
	voting_config singleton row 'main'

	categories 1──* candidates
	categories 1──* votes
	candidates 1──* votes
	users      1──* votes
	users      1──* notifications

All foreign keys use ON DELETE CASCADE.

# Seeding

LoadSeedFile inserts the categories of a YAML file when the categories
table is empty. EnsureAdmin creates the bootstrap administrator.
*/
package db
