// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type (sqlite or postgres)
	-session-secret  Session signing secret
	-seed            YAML seed file

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	SESSION_SECRET → -session-secret
	SEED_FILE      → -seed

Everything else is environment only: SESSION_TTL, IP_HASH_SALT,
POLL_INTERVAL, PUBLIC_BASE_URL, UPLOAD_DIR, UPLOAD_MAX_BYTES, MINIO_*,
AMQP_URL, AMQP_QUEUE, ADMIN_EMAIL and ADMIN_PASSWORD.

CLI flags take precedence over environment variables, which take
precedence over a .env file.

# Validation

ParseFlags returns an error if DATABASE_URL or SESSION_SECRET is missing,
or if a numeric or duration variable does not parse.
*/
package cliparse
