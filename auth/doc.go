// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credentials, session tokens and identifier helpers.

# Passwords

Every stored password goes through bcrypt:

	hash, err := auth.HashPassword(password) // ErrWeakPassword under 6 characters
	ok := auth.CheckPassword(password, hash)

# Sessions

Sessions are HS256 JWTs carrying the user ID as subject:

	sessions := auth.NewSessions(secret, 7*24*time.Hour)
	token, err := sessions.Issue(userID, role)
	claims, err := sessions.Parse(token)

The role inside the token is informational. Request authorization re-reads
the role from the database (see middleware.Authenticator).

# Contacts

	email := auth.NormalizeEmail(" Awa@Example.ML ") // "awa@example.ml"
	phone, err := auth.NormalizePhone("76 12 34 56") // "+22376123456"

# Identifiers

GenerateID returns a random UUID; ValidUUID checks the canonical form
before an ID reaches a query.

# IP Hashing

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256. Votes store the hash,
never the address.
*/
package auth
