// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/tally/models"
)

// Snapshot returns every vote, open response and like committed before
// the call, read inside one transaction so no append is seen half-applied.
func (s *Store) Snapshot(ctx context.Context, surveyID string) (models.VoteSet, error) {
	tx, err := s.db.BeginTx(ctx, s.snapshotOpts)
	if err != nil {
		return models.VoteSet{}, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	survey, err := getSurvey(ctx, tx, surveyID)
	if err != nil {
		return models.VoteSet{}, err
	}

	votes, err := loadVotes(ctx, tx, surveyID)
	if err != nil {
		return models.VoteSet{}, err
	}

	responses, err := loadOpenResponses(ctx, tx, surveyID)
	if err != nil {
		return models.VoteSet{}, err
	}

	likes, err := loadLikes(ctx, tx, surveyID)
	if err != nil {
		return models.VoteSet{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.VoteSet{}, fmt.Errorf("failed to finish snapshot: %w", err)
	}

	return models.VoteSet{
		Survey:        survey,
		Votes:         votes,
		OpenResponses: responses,
		Likes:         likes,
		TakenAt:       s.now().UTC(),
	}, nil
}

func getSurvey(ctx context.Context, q querier, surveyID string) (models.Survey, error) {
	var (
		survey models.Survey
		qt     string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, title, question_type, min_value, max_value, scale_min_label, scale_max_label,
			allow_multiple_responses, allow_custom_options, require_comment, rating_icon,
			is_active, expires_at, created_at
		FROM survey WHERE id = $1
	`, surveyID).Scan(&survey.ID, &survey.Title, &qt, &survey.MinValue, &survey.MaxValue,
		&survey.ScaleMinLabel, &survey.ScaleMaxLabel, &survey.AllowMultipleResponses,
		&survey.AllowCustomOptions, &survey.RequireComment, &survey.RatingIcon,
		&survey.IsActive, &survey.ExpiresAt, &survey.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Survey{}, ErrSurveyNotFound
	}
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to query survey: %w", err)
	}
	survey.QuestionType = models.QuestionType(qt)

	rows, err := q.QueryContext(ctx, `
		SELECT id, option_text, option_order, custom_key IS NOT NULL, created_at
		FROM survey_option
		WHERE survey_id = $1
		ORDER BY option_order, created_at, id
	`, surveyID)
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	survey.Options = []models.SurveyOption{}
	for rows.Next() {
		opt := models.SurveyOption{SurveyID: surveyID}
		if err := rows.Scan(&opt.ID, &opt.OptionText, &opt.OptionOrder, &opt.IsCustom, &opt.CreatedAt); err != nil {
			return models.Survey{}, fmt.Errorf("failed to scan option: %w", err)
		}
		survey.Options = append(survey.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return models.Survey{}, fmt.Errorf("failed to read options: %w", err)
	}
	return survey, nil
}

func loadVotes(ctx context.Context, tx *sql.Tx, surveyID string) ([]models.Vote, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, fingerprint, numeric_value, date_value, created_at
		FROM vote
		WHERE survey_id = $1
		ORDER BY seq
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}

	var votes []models.Vote
	index := make(map[string]int)
	for rows.Next() {
		v := models.Vote{SurveyID: surveyID}
		if err := rows.Scan(&v.ID, &v.Fingerprint, &v.NumericValue, &v.DateValue, &v.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		index[v.ID] = len(votes)
		votes = append(votes, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT s.vote_id, s.option_id, s.numeric_value
		FROM vote_selection s
		JOIN vote v ON v.id = s.vote_id
		WHERE v.survey_id = $1
		ORDER BY v.seq, s.position
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			voteID, optionID string
			value            *float64
		)
		if err := rows.Scan(&voteID, &optionID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		i, ok := index[voteID]
		if !ok {
			continue
		}
		votes[i].OptionIDs = append(votes[i].OptionIDs, optionID)
		if value != nil {
			if votes[i].OptionValues == nil {
				votes[i].OptionValues = make(map[string]float64)
			}
			votes[i].OptionValues[optionID] = *value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read selections: %w", err)
	}
	return votes, nil
}

func loadOpenResponses(ctx context.Context, tx *sql.Tx, surveyID string) ([]models.OpenResponse, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, vote_id, option_id, response_text, voter_ip, responded_at
		FROM open_response
		WHERE survey_id = $1
		ORDER BY seq
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open responses: %w", err)
	}
	defer rows.Close()

	var responses []models.OpenResponse
	for rows.Next() {
		var r models.OpenResponse
		if err := rows.Scan(&r.ID, &r.VoteID, &r.OptionID, &r.ResponseText, &r.VoterIP, &r.RespondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan open response: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read open responses: %w", err)
	}
	return responses, nil
}

func loadLikes(ctx context.Context, tx *sql.Tx, surveyID string) ([]models.SurveyLike, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, fingerprint, rating, comment, created_at, updated_at
		FROM survey_like
		WHERE survey_id = $1
		ORDER BY created_at, id
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer rows.Close()

	var likes []models.SurveyLike
	for rows.Next() {
		l := models.SurveyLike{SurveyID: surveyID}
		if err := rows.Scan(&l.ID, &l.Fingerprint, &l.Rating, &l.Comment, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read likes: %w", err)
	}
	return likes, nil
}
