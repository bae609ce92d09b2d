// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Supported database types.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect string) error {
	ddl, err := Schema(dialect)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Schema renders the DDL for dialect.
func Schema(dialect string) (string, error) {
	var r *strings.Replacer
	switch dialect {
	case Postgres:
		r = strings.NewReplacer(
			"{{SERIAL}}", "BIGSERIAL PRIMARY KEY",
			"{{TIMESTAMP}}", "TIMESTAMPTZ",
			"{{FLOAT}}", "DOUBLE PRECISION",
		)
	case SQLite:
		r = strings.NewReplacer(
			"{{SERIAL}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{TIMESTAMP}}", "DATETIME",
			"{{FLOAT}}", "REAL",
		)
	default:
		return "", fmt.Errorf("unsupported database type %q", dialect)
	}
	return r.Replace(schema), nil
}

const schema = `
-- Surveys (configuration is read-only to the engine)
CREATE TABLE IF NOT EXISTS survey (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    question_type TEXT NOT NULL,
    min_value INTEGER,
    max_value INTEGER,
    scale_min_label TEXT NOT NULL DEFAULT '',
    scale_max_label TEXT NOT NULL DEFAULT '',
    allow_multiple_responses BOOLEAN NOT NULL DEFAULT FALSE,
    allow_custom_options BOOLEAN NOT NULL DEFAULT FALSE,
    require_comment BOOLEAN NOT NULL DEFAULT FALSE,
    rating_icon TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    expires_at {{TIMESTAMP}},
    created_at {{TIMESTAMP}} NOT NULL
);

-- Options are append-only; custom_key is set only for options created while voting
CREATE TABLE IF NOT EXISTS survey_option (
    id TEXT PRIMARY KEY,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    option_text TEXT NOT NULL,
    option_order INTEGER NOT NULL,
    normalized_text TEXT NOT NULL,
    custom_key TEXT,
    created_at {{TIMESTAMP}} NOT NULL,
    UNIQUE (survey_id, custom_key)
);

CREATE INDEX IF NOT EXISTS idx_survey_option_survey ON survey_option(survey_id, normalized_text);

-- One row per voting event; gate_key holds the fingerprint when multiple responses are off
CREATE TABLE IF NOT EXISTS vote (
    seq {{SERIAL}},
    id TEXT NOT NULL UNIQUE,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    fingerprint TEXT NOT NULL,
    gate_key TEXT,
    numeric_value {{FLOAT}},
    date_value TEXT,
    voter_ip TEXT,
    created_at {{TIMESTAMP}} NOT NULL,
    UNIQUE (survey_id, gate_key)
);

CREATE INDEX IF NOT EXISTS idx_vote_fingerprint ON vote(survey_id, fingerprint);

CREATE TABLE IF NOT EXISTS vote_selection (
    vote_id TEXT NOT NULL REFERENCES vote(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES survey_option(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    numeric_value {{FLOAT}},
    PRIMARY KEY (vote_id, option_id)
);

CREATE TABLE IF NOT EXISTS open_response (
    seq {{SERIAL}},
    id TEXT NOT NULL UNIQUE,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    vote_id TEXT NOT NULL REFERENCES vote(id) ON DELETE CASCADE,
    option_id TEXT REFERENCES survey_option(id) ON DELETE CASCADE,
    response_text TEXT NOT NULL,
    voter_ip TEXT,
    responded_at {{TIMESTAMP}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_open_response_survey ON open_response(survey_id);

-- At most one like per fingerprint; later likes update the row
CREATE TABLE IF NOT EXISTS survey_like (
    id TEXT PRIMARY KEY,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    fingerprint TEXT NOT NULL,
    rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
    comment TEXT,
    created_at {{TIMESTAMP}} NOT NULL,
    updated_at {{TIMESTAMP}} NOT NULL,
    UNIQUE (survey_id, fingerprint)
);
`
