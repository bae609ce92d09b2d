// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

main loads a .env file with godotenv before calling ParseFlags, so values
from .env behave like environment variables.

# CLI Flags and Environment Variables

	-p                    PORT                 server port (default 3318)
	-d                    DATABASE_URL         database URL (required)
	-t                    DATABASE_TYPE        sqlite (default) or postgres
	-admin-salt           ADMIN_KEY_SALT       admin key HMAC secret (required)
	-fingerprint-salt     FINGERPRINT_SALT     voter fingerprint secret (required)
	-results-mode         RESULTS_MODE         strong (default) or bounded
	-cache-threshold      CACHE_THRESHOLD      votes above which bounded mode caches (default 1000)
	-cache-max-staleness  CACHE_MAX_STALENESS  cached results age limit (default 30s)
	-redis                REDIS_URL            shared results cache (optional)

CLI flags take precedence over environment variables.
*/
package cliparse
