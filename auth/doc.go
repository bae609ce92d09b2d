// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides survey admin keys and voter fingerprints.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(surveyID, salt)
	err := auth.ValidateAdminKey(surveyID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same survey ID and salt always produce the same key. This allows validation
without storing the key in the database.

# Fingerprints

	fp := auth.Fingerprint(clientIP, sessionID, salt)

A fingerprint gates multiple responses and like upserts. It is never
treated as an identity.
*/
package auth
