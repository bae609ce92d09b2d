// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the tally API.

	mux := router.NewRouter(eng, cfg)

# Endpoints

	GET  /health                  - Liveness
	POST /surveys                 - Create survey (returns admin_key)
	GET  /surveys/{id}            - Survey definition and options
	POST /surveys/{id}/state      - Open, close or set expiry (X-Admin-Key)
	POST /surveys/{id}/votes      - Submit a vote, optionally with a like
	POST /surveys/{id}/likes      - Submit or replace a like
	GET  /surveys/{id}/results    - Aggregated results
	GET  /surveys/{id}/vote-count - Number of recorded votes

Voters are identified by client IP plus the optional X-Voter-Session header.
*/
package router
