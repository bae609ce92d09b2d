// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/tally/cliparse"
	"github.com/danielhkuo/tally/db"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/policy"
)

// SetupTestDB creates a fresh SQLite database in a temp dir with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "tally_test.db")
	conn, err := db.Open(db.SQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       "file::memory:",
		DatabaseType:      db.SQLite,
		AdminKeySalt:      "test-admin-salt",
		FingerprintSalt:   "test-fingerprint-salt",
		ResultsMode:       cliparse.ResultsModeStrong,
		CacheThreshold:    1000,
		CacheMaxStaleness: 30 * time.Second,
	}
}

// CreateTestSurvey inserts an active survey with the given options and
// returns its ID and option IDs in order
func CreateTestSurvey(t *testing.T, conn *sql.DB, qt models.QuestionType, options ...string) (surveyID string, optionIDs []string) {
	t.Helper()
	return CreateTestSurveyWith(t, conn, models.SurveyCreate{
		Title:        "Test Survey",
		QuestionType: qt,
		Options:      options,
	})
}

// CreateTestSurveyWith inserts a survey from a full definition
func CreateTestSurveyWith(t *testing.T, conn *sql.DB, req models.SurveyCreate) (surveyID string, optionIDs []string) {
	t.Helper()

	surveyID = uuid.NewString()
	now := time.Now().UTC()
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	_, err := conn.Exec(`
		INSERT INTO survey (id, title, question_type, min_value, max_value, allow_multiple_responses,
			allow_custom_options, require_comment, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, surveyID, req.Title, string(req.QuestionType), req.MinValue, req.MaxValue, req.AllowMultipleResponses,
		req.AllowCustomOptions, req.RequireComment, isActive, req.ExpiresAt, now)
	if err != nil {
		t.Fatalf("Failed to create test survey: %v", err)
	}

	for i, text := range req.Options {
		optionID := uuid.NewString()
		_, err := conn.Exec(`
			INSERT INTO survey_option (id, survey_id, option_text, option_order, normalized_text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, optionID, surveyID, text, i, policy.NormalizeOptionText(text), now)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
		optionIDs = append(optionIDs, optionID)
	}

	return surveyID, optionIDs
}

// CountRows returns the row count of table filtered by survey_id
func CountRows(t *testing.T, conn *sql.DB, table, surveyID string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE survey_id = $1`, surveyID).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
