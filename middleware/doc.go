// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, OPTIONS with headers Content-Type, X-Admin-Key,
X-Voter-Session.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.RejectionResponse(w, http.StatusConflict, "DuplicateVote", "message")

Request bodies are decoded and checked against their validate tags:

	var req models.VoteCreate
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.DescribeDecodeError(err))
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

The IP feeds the voter fingerprint and is stored with open responses.
*/
package middleware
