// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/db"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/policy"
	"github.com/danielhkuo/tally/results"
	"github.com/danielhkuo/tally/store"
	"github.com/danielhkuo/tally/testutil"
	"github.com/danielhkuo/tally/validate"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	st := store.New(conn, db.SQLite, nil)
	svc := results.NewService(st, nil, results.Config{Mode: results.ModeStrong}, nil)
	return New(st, svc, nil), st
}

func voter(n int) validate.Voter {
	return validate.Voter{Fingerprint: fmt.Sprintf("fp-%d", n), IP: "192.0.2.1"}
}

func ptr[T any](v T) *T {
	return &v
}

func reasonOf(t *testing.T, err error) validate.Reason {
	t.Helper()
	var verr *validate.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Reason
}

func TestCreateSurveyRejectsBadConfiguration(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.CreateSurvey(context.Background(), models.SurveyCreate{
		Title:        "Scale without bounds",
		QuestionType: models.Scale,
	})
	var cerr *policy.ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}

func TestCreateAndFetchSurvey(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Lunch",
		QuestionType: models.SingleChoice,
		Options:      []string{"Pizza", "Tacos"},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	require.Len(t, created.Options, 2)

	fetched, err := eng.Survey(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", fetched.Title)
	assert.Equal(t, "Pizza", fetched.Options[0].OptionText)
	assert.Equal(t, "Tacos", fetched.Options[1].OptionText)

	_, err = eng.Survey(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrSurveyNotFound)
}

func TestDuplicateVoteLeavesVoteSetUnchanged(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Color",
		QuestionType: models.SingleChoice,
		Options:      []string{"Red", "Blue"},
	})
	require.NoError(t, err)
	red, blue := survey.Options[0].ID, survey.Options[1].ID

	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{OptionIDs: []string{red}})
	require.NoError(t, err)

	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{OptionIDs: []string{blue}})
	assert.Equal(t, validate.DuplicateVote, reasonOf(t, err))

	count, err := eng.VoteCount(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalVotes)
	assert.Equal(t, 1, res.Results[0].VoteCount)
	assert.Equal(t, 0, res.Results[1].VoteCount)
}

func TestConcurrentDuplicateVotesAdmitOne(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Race",
		QuestionType: models.SingleChoice,
		Options:      []string{"A", "B"},
	})
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, duplicates := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.SubmitVote(ctx, survey.ID, voter(7), models.VoteCreate{OptionIDs: []string{survey.Options[0].ID}})
			mu.Lock()
			defer mu.Unlock()
			var verr *validate.ValidationError
			switch {
			case err == nil:
				accepted++
			case errors.As(err, &verr) && verr.Reason == validate.DuplicateVote:
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, duplicates)

	count, err := eng.VoteCount(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentCustomOptionCreatesOneOption(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:              "Snacks",
		QuestionType:       models.SingleChoice,
		Options:            []string{"Chips"},
		AllowCustomOptions: true,
	})
	require.NoError(t, err)

	texts := []string{"Foo", " foo "}
	var wg sync.WaitGroup
	errs := make([]error, len(texts))
	for i, text := range texts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = eng.SubmitVote(ctx, survey.ID, voter(i), models.VoteCreate{CustomOptionText: ptr(text)})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	fetched, err := eng.Survey(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Options, 2)
	custom := fetched.Options[1]
	assert.True(t, custom.IsCustom)

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalVotes)
	for _, r := range res.Results {
		if r.OptionID == custom.ID {
			assert.Equal(t, 2, r.VoteCount)
			assert.Equal(t, 100.0, r.Percentage)
		}
	}
}

func TestCustomOptionMatchingExistingReusesIt(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:              "Snacks",
		QuestionType:       models.SingleChoice,
		Options:            []string{"Chips"},
		AllowCustomOptions: true,
	})
	require.NoError(t, err)

	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{CustomOptionText: ptr("CHIPS")})
	require.NoError(t, err)

	fetched, err := eng.Survey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Options, 1)

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Results[0].VoteCount)
}

func TestClosedSurveyRejectsVotesAndLikes(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Closing",
		QuestionType: models.OpenText,
	})
	require.NoError(t, err)

	updated, err := eng.UpdateSurveyState(ctx, survey.ID, models.SurveyStateUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{Comment: ptr("hello")})
	assert.Equal(t, validate.SurveyClosed, reasonOf(t, err))

	_, err = eng.SubmitLike(ctx, survey.ID, voter(1), models.SurveyLikeCreate{Rating: 5})
	assert.Equal(t, validate.SurveyClosed, reasonOf(t, err))

	_, err = eng.UpdateSurveyState(ctx, "missing", models.SurveyStateUpdate{IsActive: ptr(true)})
	assert.ErrorIs(t, err, store.ErrSurveyNotFound)
}

func TestExpiredSurveyIsClosed(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Expiring",
		QuestionType: models.OpenText,
		ExpiresAt:    ptr(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	eng.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{Comment: ptr("hello")})
	assert.Equal(t, validate.SurveyClosed, reasonOf(t, err))
}

func TestVoteWithLikeRating(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Team lunch",
		QuestionType: models.Rating,
		MinValue:     ptr(1),
		MaxValue:     ptr(5),
	})
	require.NoError(t, err)

	resp, err := eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{
		NumericValue:  ptr(4.0),
		LikeRating:    ptr(5),
		SurveyComment: ptr("great survey"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.VoteID)
	assert.NotEmpty(t, resp.LikeID)

	// a later like from the same voter replaces the first
	likeID, err := eng.SubmitLike(ctx, survey.ID, voter(1), models.SurveyLikeCreate{Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, resp.LikeID, likeID)

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	require.NotNil(t, res.LikeStats)
	assert.Equal(t, 1, res.LikeStats.TotalLikes)
	assert.Equal(t, 3.0, res.LikeStats.AverageRating)
	require.NotNil(t, res.NumericStats)
	assert.Equal(t, 4.0, res.NumericStats.Average)
}

func TestInvalidLikeRejectsWholeVote(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Thoughts",
		QuestionType: models.OpenText,
	})
	require.NoError(t, err)

	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{
		Comment:    ptr("hello"),
		LikeRating: ptr(9),
	})
	assert.Equal(t, validate.OutOfRange, reasonOf(t, err))

	count, err := eng.VoteCount(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOptionVoteWithoutValueIsRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Rate each area",
		QuestionType: models.Scale,
		MinValue:     ptr(0),
		MaxValue:     ptr(10),
		Options:      []string{"Docs"},
	})
	require.NoError(t, err)
	docs := survey.Options[0].ID

	_, err = eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{
		OptionVotes: []models.OptionVote{{OptionID: docs}},
	})
	assert.Equal(t, validate.OutOfRange, reasonOf(t, err))

	_, err = eng.SubmitVote(ctx, survey.ID, voter(2), models.VoteCreate{
		OptionVotes: []models.OptionVote{{OptionID: docs, NumericValue: ptr(7.0)}},
	})
	require.NoError(t, err)

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalVotes)
	require.NotNil(t, res.NumericStats)
	assert.Equal(t, 1, res.NumericStats.Count)
	assert.Equal(t, 7.0, res.NumericStats.Min)
	require.Len(t, res.Results, 1)
	require.NotNil(t, res.Results[0].NumericAverage)
	assert.Equal(t, 7.0, *res.Results[0].NumericAverage)
}

func TestMultipleResponsesAllowed(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:                  "Feedback",
		QuestionType:           models.OpenText,
		AllowMultipleResponses: true,
	})
	require.NoError(t, err)

	for _, text := range []string{"first", "second"} {
		_, err := eng.SubmitVote(ctx, survey.ID, voter(1), models.VoteCreate{Comment: ptr(text)})
		require.NoError(t, err)
	}

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalVotes)
	assert.Equal(t, 2, res.TotalResponses)
	require.Len(t, res.OpenResponses, 2)
	assert.Equal(t, "first", res.OpenResponses[0].ResponseText)
	assert.Equal(t, "second", res.OpenResponses[1].ResponseText)
}

func TestDateSurveyResults(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	survey, err := eng.CreateSurvey(ctx, models.SurveyCreate{
		Title:        "Offsite",
		QuestionType: models.Date,
	})
	require.NoError(t, err)

	for i, d := range []string{"2025-06-02", "2025-06-01", "2025-06-02"} {
		_, err := eng.SubmitVote(ctx, survey.ID, voter(i), models.VoteCreate{DateValue: ptr(d)})
		require.NoError(t, err)
	}
	_, err = eng.SubmitVote(ctx, survey.ID, voter(9), models.VoteCreate{DateValue: ptr("June 2")})
	assert.Equal(t, validate.InvalidDate, reasonOf(t, err))

	res, err := eng.Results(ctx, survey.ID)
	require.NoError(t, err)
	require.NotNil(t, res.MostCommonDate)
	assert.Equal(t, "2025-06-02", *res.MostCommonDate)
	assert.Equal(t, []models.DateBucket{{Date: "2025-06-01", Count: 1}, {Date: "2025-06-02", Count: 2}}, res.DateDistribution)
}

func TestResultsUnknownSurvey(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Results(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrSurveyNotFound)

	_, err = eng.VoteCount(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrSurveyNotFound)
}
