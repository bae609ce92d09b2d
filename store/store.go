// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store persists surveys, votes, open responses and likes in SQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/tally/db"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/policy"
	"github.com/danielhkuo/tally/validate"
)

var (
	ErrSurveyNotFound = errors.New("survey not found")
	ErrDuplicateVote  = errors.New("vote already recorded for fingerprint")
)

// Store records surveys, votes, open responses and likes.
type Store struct {
	db           *sql.DB
	dialect      string
	snapshotOpts *sql.TxOptions
	logger       *slog.Logger
	now          func() time.Time
}

// New returns a Store over conn. dialect is db.Postgres or db.SQLite.
func New(conn *sql.DB, dialect string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:           conn,
		dialect:      dialect,
		snapshotOpts: db.SnapshotTxOptions(dialect),
		logger:       logger.With("module", "store"),
		now:          time.Now,
	}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateSurvey persists a checked survey definition with its options.
func (s *Store) CreateSurvey(ctx context.Context, req models.SurveyCreate) (models.Survey, error) {
	surveyID := uuid.NewString()
	createdAt := s.now().UTC()
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO survey (id, title, question_type, min_value, max_value, scale_min_label, scale_max_label,
			allow_multiple_responses, allow_custom_options, require_comment, rating_icon, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, surveyID, req.Title, string(req.QuestionType), req.MinValue, req.MaxValue, req.ScaleMinLabel, req.ScaleMaxLabel,
		req.AllowMultipleResponses, req.AllowCustomOptions, req.RequireComment, req.RatingIcon, isActive, utcPtr(req.ExpiresAt), createdAt)
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to insert survey: %w", err)
	}

	for i, text := range req.Options {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO survey_option (id, survey_id, option_text, option_order, normalized_text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), surveyID, text, i, policy.NormalizeOptionText(text), createdAt)
		if err != nil {
			return models.Survey{}, fmt.Errorf("failed to insert option: %w", err)
		}
	}

	survey, err := getSurvey(ctx, tx, surveyID)
	if err != nil {
		return models.Survey{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Survey{}, fmt.Errorf("failed to commit survey: %w", err)
	}
	return survey, nil
}

// GetSurvey returns a survey with its options in display order.
func (s *Store) GetSurvey(ctx context.Context, surveyID string) (models.Survey, error) {
	return getSurvey(ctx, s.db, surveyID)
}

// UpdateSurveyState changes the activation flag and expiry, the only
// mutable survey fields.
func (s *Store) UpdateSurveyState(ctx context.Context, surveyID string, update models.SurveyStateUpdate) (models.Survey, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if update.IsActive != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE survey SET is_active = $1 WHERE id = $2`, *update.IsActive, surveyID); err != nil {
			return models.Survey{}, fmt.Errorf("failed to update is_active: %w", err)
		}
	}
	if update.ExpiresAt != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE survey SET expires_at = $1 WHERE id = $2`, update.ExpiresAt.UTC(), surveyID); err != nil {
			return models.Survey{}, fmt.Errorf("failed to update expires_at: %w", err)
		}
	}

	survey, err := getSurvey(ctx, tx, surveyID)
	if err != nil {
		return models.Survey{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Survey{}, fmt.Errorf("failed to commit survey state: %w", err)
	}
	return survey, nil
}

// CountVotesByFingerprint returns how many votes fingerprint already holds.
func (s *Store) CountVotesByFingerprint(ctx context.Context, surveyID, fingerprint string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE survey_id = $1 AND fingerprint = $2
	`, surveyID, fingerprint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes for fingerprint: %w", err)
	}
	return n, nil
}

// CountVotes returns the number of voting events recorded for a survey.
func (s *Store) CountVotes(ctx context.Context, surveyID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote WHERE survey_id = $1`, surveyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// Append records a validated vote. A custom option named by the vote is
// created in the same transaction; when another submission created it
// first, that option is reused. Returns ErrDuplicateVote when the
// fingerprint already holds a vote and multiple responses are off.
func (s *Store) Append(ctx context.Context, v validate.ValidatedVote) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := v.SubmittedAt.UTC()
	optionIDs := slices.Clone(v.OptionIDs)
	if v.CustomOptionText != "" {
		optionID, err := s.resolveCustomOption(ctx, tx, v.SurveyID, v.CustomOptionText, createdAt)
		if err != nil {
			return "", err
		}
		if !slices.Contains(optionIDs, optionID) {
			optionIDs = append(optionIDs, optionID)
		}
	}

	var gateKey, voterIP *string
	if !v.AllowMultiple {
		gateKey = &v.Fingerprint
	}
	if v.VoterIP != "" {
		voterIP = &v.VoterIP
	}

	voteID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, survey_id, fingerprint, gate_key, numeric_value, date_value, voter_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, voteID, v.SurveyID, v.Fingerprint, gateKey, v.NumericValue, v.DateValue, voterIP, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateVote
		}
		return "", fmt.Errorf("failed to insert vote: %w", err)
	}

	values := make(map[string]float64, len(v.OptionValues))
	for _, ov := range v.OptionValues {
		values[ov.OptionID] = ov.Value
	}
	for i, optionID := range optionIDs {
		var value *float64
		if x, ok := values[optionID]; ok {
			value = &x
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vote_selection (vote_id, option_id, position, numeric_value)
			VALUES ($1, $2, $3, $4)
		`, voteID, optionID, i, value)
		if err != nil {
			return "", fmt.Errorf("failed to insert selection: %w", err)
		}
	}

	// comment and per-option responses become independent rows, comment first
	if v.Comment != "" {
		if err := insertOpenResponse(ctx, tx, v.SurveyID, voteID, nil, v.Comment, voterIP, createdAt); err != nil {
			return "", err
		}
	}
	for _, resp := range v.OptionResponses {
		optionID := resp.OptionID
		if err := insertOpenResponse(ctx, tx, v.SurveyID, voteID, &optionID, resp.Text, voterIP, createdAt); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit vote: %w", err)
	}
	return voteID, nil
}

// resolveCustomOption returns the id of the option whose normalized text
// matches text, creating a custom option when none exists.
func (s *Store) resolveCustomOption(ctx context.Context, tx *sql.Tx, surveyID, text string, createdAt time.Time) (string, error) {
	key := policy.NormalizeOptionText(text)

	var optionID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM survey_option
		WHERE survey_id = $1 AND normalized_text = $2
		ORDER BY option_order, created_at, id
		LIMIT 1
	`, surveyID, key).Scan(&optionID)
	if err == nil {
		return optionID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up option: %w", err)
	}

	// option_order is MAX+1, so creators on the same survey take turns.
	// SQLite write transactions already hold the database write lock.
	if s.dialect == db.Postgres {
		if _, err := tx.ExecContext(ctx, `SELECT id FROM survey WHERE id = $1 FOR UPDATE`, surveyID); err != nil {
			return "", fmt.Errorf("failed to lock survey options: %w", err)
		}
	}

	var order int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(option_order), -1) + 1 FROM survey_option WHERE survey_id = $1
	`, surveyID).Scan(&order)
	if err != nil {
		return "", fmt.Errorf("failed to compute option order: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO survey_option (id, survey_id, option_text, option_order, normalized_text, custom_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (survey_id, custom_key) DO NOTHING
	`, uuid.NewString(), surveyID, text, order, key, key, createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert custom option: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("custom option created concurrently, reusing", "survey_id", surveyID, "option_key", key)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT id FROM survey_option WHERE survey_id = $1 AND custom_key = $2
	`, surveyID, key).Scan(&optionID)
	if err != nil {
		return "", fmt.Errorf("failed to read custom option: %w", err)
	}
	return optionID, nil
}

func insertOpenResponse(ctx context.Context, tx *sql.Tx, surveyID, voteID string, optionID *string, text string, voterIP *string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO open_response (id, survey_id, vote_id, option_id, response_text, voter_ip, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), surveyID, voteID, optionID, text, voterIP, at)
	if err != nil {
		return fmt.Errorf("failed to insert open response: %w", err)
	}
	return nil
}

// AppendLike records a like, replacing the rating and comment of an
// earlier like from the same fingerprint.
func (s *Store) AppendLike(ctx context.Context, like validate.ValidatedLike) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO survey_like (id, survey_id, fingerprint, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (survey_id, fingerprint) DO UPDATE
		SET rating = excluded.rating, comment = excluded.comment, updated_at = excluded.updated_at
	`, uuid.NewString(), like.SurveyID, like.Fingerprint, like.Rating, like.Comment, like.SubmittedAt.UTC(), like.SubmittedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to upsert like: %w", err)
	}

	var likeID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM survey_like WHERE survey_id = $1 AND fingerprint = $2
	`, like.SurveyID, like.Fingerprint).Scan(&likeID)
	if err != nil {
		return "", fmt.Errorf("failed to read like: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit like: %w", err)
	}
	return likeID, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
