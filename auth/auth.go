// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidAdminKey = errors.New("invalid admin key")

// GenerateAdminKey creates an HMAC-based admin key for a survey
// This is deterministic and verifiable
func GenerateAdminKey(surveyID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(surveyID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the survey
func ValidateAdminKey(surveyID, adminKey, salt string) error {
	expected := GenerateAdminKey(surveyID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// Fingerprint derives the opaque voter key used for duplicate-vote and
// like-upsert detection. It is a salted one-way hash of the client IP and
// an optional session id, so the raw address is never used as identity.
func Fingerprint(ip, session, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	h.Write([]byte{0})
	h.Write([]byte(session))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
