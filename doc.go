// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Bankass Awards API server.

Bankass Awards is the voting backend of a regional music and culture
ceremony. Voters register with an email or a Malian phone number, browse
categories and candidates, and cast at most one vote per category while an
administrator keeps voting open.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:bankass.db SESSION_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -session-secret ... -seed db/seeds/bankass.yaml

A .env file in the working directory is read as well.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite DSN or PostgreSQL connection string
  - SESSION_SECRET (-session-secret): HS256 key for session tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - SEED_FILE (-seed): YAML categories applied to an empty database
  - ADMIN_EMAIL, ADMIN_PASSWORD: bootstrap SUPER_ADMIN account
  - MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_BUCKET: upload storage
  - AMQP_URL, AMQP_QUEUE: domain event publishing

# Architecture

  - handlers: HTTP request handlers (users, catalogue, votes, notifications)
  - router: Route table and access control
  - middleware: Sessions, CORS, logging, metrics, JSON helpers
  - models: Request, response and domain types
  - auth: Passwords, session tokens, identifiers
  - db: Connection, schema, seed data
  - blobstore: Candidate image storage (disk or MinIO)
  - events: Domain events (RabbitMQ or no-op)
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
