// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the tally API server.

tally collects survey votes, likes and free-text responses, and serves
aggregated results: per-option counts and percentages, numeric statistics,
value and date distributions, and like statistics.

# Starting the Server

	DATABASE_URL=file:tally.db ADMIN_KEY_SALT=... FINGERPRINT_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file URL or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC
  - FINGERPRINT_SALT (-fingerprint-salt): Secret for voter fingerprints

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - RESULTS_MODE (-results-mode): strong or bounded (default: strong)
  - CACHE_THRESHOLD (-cache-threshold): votes above which bounded mode caches (default: 1000)
  - CACHE_MAX_STALENESS (-cache-max-staleness): cached result lifetime (default: 30s)
  - REDIS_URL (-redis): share the bounded-mode cache between instances
  - LOG_FORMAT: json for structured JSON logs

# Architecture

  - handlers: HTTP request handlers (surveys, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON decoding and validation
  - engine: Validate, store and aggregate in one place
  - policy: Per-question-type rules
  - validate: Vote and like checks
  - store: SQL persistence and snapshots
  - aggregate: Results computation
  - results: Strong or bounded-staleness reads
  - models: Request, response and domain types
  - auth: Admin keys and voter fingerprints
  - db: Connections and schema
  - cliparse: Configuration parsing
*/
package main
