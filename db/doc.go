// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens connections and creates the schema for Postgres or SQLite.

# Connecting

	conn, err := db.Open(db.SQLite, "file:tally.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		log.Fatal(err)
	}

Postgres uses github.com/lib/pq, SQLite uses modernc.org/sqlite. Both accept
$N placeholders, so queries are shared between dialects. SQLite connections
are capped at one so writers queue instead of failing.

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - survey: configuration and lifecycle flags
  - survey_option: predefined and custom options
  - vote: one row per voting event
  - vote_selection: selected options with optional per-option values
  - open_response: comments and per-option text
  - survey_like: one rating per fingerprint

# Relationships

	survey 1──* survey_option
	survey 1──* vote
	vote 1──* vote_selection *──1 survey_option
	vote 1──* open_response
	survey 1──* survey_like

All foreign keys use ON DELETE CASCADE.

# Uniqueness

Two constraints carry the concurrency guarantees of the vote store:

  - survey_option(survey_id, custom_key): one custom option per normalized text
  - vote(survey_id, gate_key): one vote per fingerprint when multiple
    responses are off (gate_key is NULL otherwise, and NULLs never collide)
*/
package db
