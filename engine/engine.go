// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package engine is the survey response engine: it validates submissions,
// appends them to the store and serves results.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/policy"
	"github.com/danielhkuo/tally/store"
	"github.com/danielhkuo/tally/validate"
)

// Store is the persistence the engine needs.
type Store interface {
	CreateSurvey(ctx context.Context, req models.SurveyCreate) (models.Survey, error)
	GetSurvey(ctx context.Context, surveyID string) (models.Survey, error)
	UpdateSurveyState(ctx context.Context, surveyID string, update models.SurveyStateUpdate) (models.Survey, error)
	CountVotesByFingerprint(ctx context.Context, surveyID, fingerprint string) (int, error)
	CountVotes(ctx context.Context, surveyID string) (int, error)
	Append(ctx context.Context, vote validate.ValidatedVote) (string, error)
	AppendLike(ctx context.Context, like validate.ValidatedLike) (string, error)
}

// ResultsReader answers results reads under a consistency mode.
type ResultsReader interface {
	GetResults(ctx context.Context, surveyID string) (models.SurveyResultsResponse, error)
}

// Engine ties validation, storage and aggregation together.
type Engine struct {
	store   Store
	results ResultsReader
	now     func() time.Time
	logger  *slog.Logger
}

func New(s Store, results ResultsReader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   s,
		results: results,
		now:     time.Now,
		logger:  logger.With("module", "engine"),
	}
}

// CreateSurvey checks the definition and stores it. Invalid definitions
// return a *policy.ConfigurationError.
func (e *Engine) CreateSurvey(ctx context.Context, req models.SurveyCreate) (models.Survey, error) {
	if err := policy.CheckSurvey(req); err != nil {
		return models.Survey{}, err
	}
	survey, err := e.store.CreateSurvey(ctx, req)
	if err != nil {
		return models.Survey{}, err
	}
	e.logger.Info("survey created", "survey_id", survey.ID, "question_type", survey.QuestionType, "options", len(survey.Options))
	return survey, nil
}

func (e *Engine) Survey(ctx context.Context, surveyID string) (models.Survey, error) {
	return e.store.GetSurvey(ctx, surveyID)
}

func (e *Engine) UpdateSurveyState(ctx context.Context, surveyID string, update models.SurveyStateUpdate) (models.Survey, error) {
	if _, err := e.store.GetSurvey(ctx, surveyID); err != nil {
		return models.Survey{}, err
	}
	survey, err := e.store.UpdateSurveyState(ctx, surveyID, update)
	if err != nil {
		return models.Survey{}, err
	}
	e.logger.Info("survey state updated", "survey_id", surveyID, "is_active", survey.IsActive)
	return survey, nil
}

// SubmitVote validates and records a vote. A like_rating on the request is
// recorded as the voter's like once the vote is accepted. Rejections are
// returned as *validate.ValidationError.
func (e *Engine) SubmitVote(ctx context.Context, surveyID string, voter validate.Voter, req models.VoteCreate) (models.SubmitVoteResponse, error) {
	survey, err := e.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return models.SubmitVoteResponse{}, err
	}

	prior, err := e.store.CountVotesByFingerprint(ctx, surveyID, voter.Fingerprint)
	if err != nil {
		return models.SubmitVoteResponse{}, err
	}

	now := e.now()
	vote, err := validate.Vote(survey, prior, voter, req, now)
	if err != nil {
		return models.SubmitVoteResponse{}, err
	}

	var like *validate.ValidatedLike
	if req.LikeRating != nil {
		l, err := validate.Like(survey, voter, models.SurveyLikeCreate{Rating: *req.LikeRating, Comment: req.SurveyComment}, now)
		if err != nil {
			return models.SubmitVoteResponse{}, err
		}
		like = &l
	}

	voteID, err := e.store.Append(ctx, vote)
	if errors.Is(err, store.ErrDuplicateVote) {
		// lost a race with a concurrent submission from the same voter
		return models.SubmitVoteResponse{}, &validate.ValidationError{
			Reason:  validate.DuplicateVote,
			Message: "a response was already recorded for this voter",
		}
	}
	if err != nil {
		return models.SubmitVoteResponse{}, err
	}
	e.logger.Info("vote recorded", "survey_id", surveyID, "vote_id", voteID, "options", len(vote.OptionIDs), "custom_option", vote.CustomOptionText != "")

	resp := models.SubmitVoteResponse{VoteID: voteID}
	if like != nil {
		likeID, err := e.store.AppendLike(ctx, *like)
		if err != nil {
			// the vote stands; report it without the like
			e.logger.Error("failed to record like with vote", "survey_id", surveyID, "vote_id", voteID, "error", err)
			return resp, nil
		}
		resp.LikeID = likeID
	}
	return resp, nil
}

// SubmitLike records or replaces the voter's like for a survey.
func (e *Engine) SubmitLike(ctx context.Context, surveyID string, voter validate.Voter, req models.SurveyLikeCreate) (string, error) {
	survey, err := e.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return "", err
	}
	like, err := validate.Like(survey, voter, req, e.now())
	if err != nil {
		return "", err
	}
	likeID, err := e.store.AppendLike(ctx, like)
	if err != nil {
		return "", err
	}
	e.logger.Info("like recorded", "survey_id", surveyID, "like_id", likeID, "rating", like.Rating)
	return likeID, nil
}

// Results returns the aggregated results for a survey.
func (e *Engine) Results(ctx context.Context, surveyID string) (models.SurveyResultsResponse, error) {
	return e.results.GetResults(ctx, surveyID)
}

// VoteCount returns the number of recorded voting events.
func (e *Engine) VoteCount(ctx context.Context, surveyID string) (int, error) {
	if _, err := e.store.GetSurvey(ctx, surveyID); err != nil {
		return 0, err
	}
	return e.store.CountVotes(ctx, surveyID)
}
