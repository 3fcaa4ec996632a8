// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package models defines request, response, and domain types for the API.
// JSON field names follow the web client (camelCase); db tags map to the
// snake_case columns.
package models
