// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bankass-awards/server/cliparse"
)

// Driver names registered by lib/pq and modernc.org/sqlite.
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

func init() {
	// sqlx does not know the modernc driver name; queries are written with
	// ? placeholders and rebound per driver.
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg cliparse.Config) (*sqlx.DB, error) {
	driver := driverSQLite
	if cfg.DatabaseType == cliparse.DatabasePostgres {
		driver = driverPostgres
	}

	conn, err := sqlx.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == driverSQLite {
		// SQLite allows a single writer; serialize through one connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == driverSQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure from either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// The same DDL runs on PostgreSQL and SQLite, so it sticks to the common
// subset: TEXT ids, JSON kept in TEXT columns, BOOLEAN and TIMESTAMP.
const schema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT UNIQUE,
    phone TEXT UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'VOTER' CHECK (role IN ('VOTER', 'SUPER_ADMIN')),
    domain TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    profile_photo TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (email IS NOT NULL OR phone IS NOT NULL)
);

-- Categories
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    subtitle TEXT NOT NULL DEFAULT '',
    special BOOLEAN NOT NULL DEFAULT FALSE,
    is_leadership_prize BOOLEAN NOT NULL DEFAULT FALSE,
    pre_assigned_winner TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Candidates
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    alias TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    achievements TEXT NOT NULL DEFAULT '[]',
    song_count INTEGER NOT NULL DEFAULT 0,
    candidate_song TEXT NOT NULL DEFAULT '',
    audio_file TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_candidates_category_id ON candidates(category_id);

-- Votes: one per (user, category), enforced here and not only in the handler
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
    candidate_name TEXT NOT NULL,
    voted_at BIGINT NOT NULL,
    ip_hash TEXT,
    user_agent TEXT,
    CONSTRAINT votes_user_category_key UNIQUE (user_id, category_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_category_id ON votes(category_id);
CREATE INDEX IF NOT EXISTS idx_votes_voted_at ON votes(voted_at);

-- Notifications
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    data TEXT,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, is_read);

-- Voting configuration (singleton row id = 'main')
CREATE TABLE IF NOT EXISTS voting_config (
    id TEXT PRIMARY KEY CHECK (id = 'main'),
    current_event TEXT,
    is_voting_open BOOLEAN NOT NULL DEFAULT FALSE,
    block_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
