// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package validate checks votes and likes against a survey before they are
// stored.
package validate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/policy"
)

// Reason is the user-correctable cause of a rejected submission.
type Reason string

const (
	SurveyClosed          Reason = "SurveyClosed"
	DuplicateVote         Reason = "DuplicateVote"
	InvalidOptionCount    Reason = "InvalidOptionCount"
	UnknownOption         Reason = "UnknownOption"
	CustomOptionsDisabled Reason = "CustomOptionsDisabled"
	OutOfRange            Reason = "OutOfRange"
	InvalidDate           Reason = "InvalidDate"
	MissingComment        Reason = "MissingComment"
)

// ValidationError rejects a vote or like with a specific Reason.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func reject(reason Reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Voter identifies the submitter for multiple-response gating only.
type Voter struct {
	Fingerprint string
	IP          string
}

type OptionValue struct {
	OptionID string
	Value    float64
}

type OptionText struct {
	OptionID string
	Text     string
}

// ValidatedVote is a submission that passed every check and is ready to
// be appended. Fields the question type does not use are dropped.
type ValidatedVote struct {
	SurveyID      string
	Fingerprint   string
	VoterIP       string
	AllowMultiple bool

	// OptionIDs is the de-duplicated selection set in first-seen order,
	// not including the custom option.
	OptionIDs        []string
	CustomOptionText string

	NumericValue    *float64
	OptionValues    []OptionValue
	DateValue       *string
	Comment         string
	OptionResponses []OptionText
	SubmittedAt     time.Time
}

// Vote checks req against survey in a fixed order and returns the first
// failure. priorVotes is the number of votes already recorded for the
// voter's fingerprint. Vote has no side effects.
func Vote(survey models.Survey, priorVotes int, voter Voter, req models.VoteCreate, now time.Time) (ValidatedVote, error) {
	rule, err := policy.Lookup(survey.QuestionType)
	if err != nil {
		return ValidatedVote{}, err
	}

	// 1. open
	if !survey.IsOpen(now) {
		return ValidatedVote{}, reject(SurveyClosed, "survey %s is not accepting responses", survey.ID)
	}

	// 2. multiplicity
	if priorVotes > 0 && !survey.AllowMultipleResponses {
		return ValidatedVote{}, reject(DuplicateVote, "a response was already recorded for this voter")
	}

	// 3. cardinality
	selection, err := selectionSet(req)
	if err != nil {
		return ValidatedVote{}, err
	}
	custom := ""
	if req.CustomOptionText != nil {
		custom = strings.TrimSpace(*req.CustomOptionText)
	}
	count := len(selection)
	if custom != "" {
		count++
	}
	lo, hi := rule.Cardinality(len(survey.Options), survey.AllowCustomOptions)
	if count < lo || count > hi {
		if lo == hi {
			return ValidatedVote{}, reject(InvalidOptionCount, "expected %d option(s), got %d", lo, count)
		}
		return ValidatedVote{}, reject(InvalidOptionCount, "expected between %d and %d options, got %d", lo, hi, count)
	}

	// 4. ownership
	known := make(map[string]bool, len(survey.Options))
	for _, opt := range survey.Options {
		known[opt.ID] = true
	}
	for _, id := range selection {
		if !known[id] {
			return ValidatedVote{}, reject(UnknownOption, "option %s does not belong to survey %s", id, survey.ID)
		}
	}

	// 5. custom options
	if custom != "" && !survey.AllowCustomOptions {
		return ValidatedVote{}, reject(CustomOptionsDisabled, "survey %s does not accept custom options", survey.ID)
	}

	vote := ValidatedVote{
		SurveyID:         survey.ID,
		Fingerprint:      voter.Fingerprint,
		VoterIP:          voter.IP,
		AllowMultiple:    survey.AllowMultipleResponses,
		OptionIDs:        selection,
		CustomOptionText: custom,
		SubmittedAt:      now,
	}

	// 6. numeric range
	if err := checkNumeric(survey, rule, req, &vote); err != nil {
		return ValidatedVote{}, err
	}

	// 7. date
	if req.DateValue != nil || rule.ExpectsDate {
		raw := ""
		if req.DateValue != nil {
			raw = strings.TrimSpace(*req.DateValue)
		}
		if raw == "" {
			return ValidatedVote{}, reject(InvalidDate, "date_value is required")
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return ValidatedVote{}, reject(InvalidDate, "date_value %q is not a YYYY-MM-DD date", raw)
		}
		if rule.ExpectsDate {
			normalized := d.Format(time.DateOnly)
			vote.DateValue = &normalized
		}
	}

	// 8. text
	if req.Comment != nil {
		vote.Comment = strings.TrimSpace(*req.Comment)
	}
	answered := make(map[string]bool, len(req.OptionResponses))
	for _, resp := range req.OptionResponses {
		text := strings.TrimSpace(resp.ResponseText)
		if text == "" {
			continue
		}
		answered[resp.OptionID] = true
		vote.OptionResponses = append(vote.OptionResponses, OptionText{OptionID: resp.OptionID, Text: text})
	}
	if survey.RequireComment || rule.ExpectsText {
		if vote.Comment == "" && !everySelectedAnswered(selection, custom, answered) {
			return ValidatedVote{}, reject(MissingComment, "a comment or one response per selected option is required")
		}
	}

	return vote, nil
}

// selectionSet merges option_ids, option_votes and option_responses ids.
func selectionSet(req models.VoteCreate) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, id := range req.OptionIDs {
		add(id)
	}

	rated := make(map[string]bool, len(req.OptionVotes))
	for _, ov := range req.OptionVotes {
		if rated[ov.OptionID] {
			return nil, reject(InvalidOptionCount, "option %s rated more than once", ov.OptionID)
		}
		rated[ov.OptionID] = true
		add(ov.OptionID)
	}

	responded := make(map[string]bool, len(req.OptionResponses))
	for _, resp := range req.OptionResponses {
		if responded[resp.OptionID] {
			return nil, reject(InvalidOptionCount, "option %s answered more than once", resp.OptionID)
		}
		responded[resp.OptionID] = true
		add(resp.OptionID)
	}
	return ids, nil
}

func checkNumeric(survey models.Survey, rule policy.Rule, req models.VoteCreate, vote *ValidatedVote) error {
	if rule.ExpectsNumeric && req.NumericValue == nil && len(req.OptionVotes) == 0 {
		return reject(OutOfRange, "a numeric value is required")
	}

	inRange := func(v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if !survey.HasBounds() {
			return true
		}
		return v >= float64(*survey.MinValue) && v <= float64(*survey.MaxValue)
	}
	bounds := func() string {
		if !survey.HasBounds() {
			return "finite"
		}
		return fmt.Sprintf("within [%d, %d]", *survey.MinValue, *survey.MaxValue)
	}

	if req.NumericValue != nil {
		if !inRange(*req.NumericValue) {
			return reject(OutOfRange, "numeric_value %v must be %s", *req.NumericValue, bounds())
		}
		if rule.ExpectsNumeric {
			v := *req.NumericValue
			vote.NumericValue = &v
		}
	}
	for _, ov := range req.OptionVotes {
		if ov.NumericValue == nil {
			return reject(OutOfRange, "option %s needs a numeric_value", ov.OptionID)
		}
		if !inRange(*ov.NumericValue) {
			return reject(OutOfRange, "value %v for option %s must be %s", *ov.NumericValue, ov.OptionID, bounds())
		}
		if rule.ExpectsNumeric {
			vote.OptionValues = append(vote.OptionValues, OptionValue{OptionID: ov.OptionID, Value: *ov.NumericValue})
		}
	}
	return nil
}

func everySelectedAnswered(selection []string, custom string, answered map[string]bool) bool {
	if len(selection) == 0 || custom != "" {
		return false
	}
	for _, id := range selection {
		if !answered[id] {
			return false
		}
	}
	return true
}

// ValidatedLike is a like ready for upsert.
type ValidatedLike struct {
	SurveyID    string
	Fingerprint string
	Rating      int
	Comment     *string
	SubmittedAt time.Time
}

// Like checks a like against the survey. Likes ignore vote multiplicity.
func Like(survey models.Survey, voter Voter, req models.SurveyLikeCreate, now time.Time) (ValidatedLike, error) {
	if !survey.IsOpen(now) {
		return ValidatedLike{}, reject(SurveyClosed, "survey %s is not accepting responses", survey.ID)
	}
	if req.Rating < models.LikeRatingMin || req.Rating > models.LikeRatingMax {
		return ValidatedLike{}, reject(OutOfRange, "rating %d must be within [%d, %d]", req.Rating, models.LikeRatingMin, models.LikeRatingMax)
	}

	like := ValidatedLike{
		SurveyID:    survey.ID,
		Fingerprint: voter.Fingerprint,
		Rating:      req.Rating,
		SubmittedAt: now,
	}
	if req.Comment != nil {
		if c := strings.TrimSpace(*req.Comment); c != "" {
			like.Comment = &c
		}
	}
	return like, nil
}
