// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateAdminKey(t *testing.T) {
	tests := []struct {
		name     string
		surveyID string
		salt     string
	}{
		{"standard", "survey123", "secret-salt"},
		{"empty survey id", "", "salt"},
		{"empty salt", "survey456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateAdminKey(tt.surveyID, tt.salt)

			// Should not be empty
			if key == "" {
				t.Error("GenerateAdminKey() returned empty string")
			}

			// Should be deterministic
			key2 := GenerateAdminKey(tt.surveyID, tt.salt)
			if key != key2 {
				t.Error("GenerateAdminKey() is not deterministic")
			}

			// Different inputs should produce different keys
			if tt.surveyID != "" && tt.salt != "" {
				differentKey := GenerateAdminKey(tt.surveyID+"x", tt.salt)
				if key == differentKey {
					t.Error("GenerateAdminKey() produced same key for different survey IDs")
				}
			}

			// Should be URL-safe (no padding)
			if strings.Contains(key, "=") {
				t.Error("GenerateAdminKey() contains padding characters")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	surveyID := "test-survey-123"
	salt := "test-salt"
	validKey := GenerateAdminKey(surveyID, salt)

	tests := []struct {
		name     string
		surveyID string
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", surveyID, validKey, salt, false},
		{"wrong key", surveyID, "wrong-key", salt, true},
		{"wrong survey id", "different-survey", validKey, salt, true},
		{"wrong salt", surveyID, validKey, "different-salt", true},
		{"empty key", surveyID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.surveyID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("192.168.1.1", "session-a", "salt")

	if len(fp) != 32 {
		t.Errorf("Fingerprint() length = %d, want 32", len(fp))
	}
	if strings.Contains(fp, "192.168") {
		t.Error("Fingerprint() leaks the raw IP")
	}
	if fp != Fingerprint("192.168.1.1", "session-a", "salt") {
		t.Error("Fingerprint() is not deterministic")
	}

	others := []struct {
		name, ip, session, salt string
	}{
		{"different ip", "192.168.1.2", "session-a", "salt"},
		{"different session", "192.168.1.1", "session-b", "salt"},
		{"no session", "192.168.1.1", "", "salt"},
		{"different salt", "192.168.1.1", "session-a", "pepper"},
		{"shifted boundary", "192.168.1.1s", "ession-a", "salt"},
	}
	for _, tt := range others {
		t.Run(tt.name, func(t *testing.T) {
			if Fingerprint(tt.ip, tt.session, tt.salt) == fp {
				t.Errorf("Fingerprint() collided for %s", tt.name)
			}
		})
	}
}
