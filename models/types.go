// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// QuestionType selects the validation and aggregation rules for a survey.
type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	OpenText       QuestionType = "OPEN_TEXT"
	Scale          QuestionType = "SCALE"
	Rating         QuestionType = "RATING"
	Date           QuestionType = "DATE"
)

// QuestionTypes lists every question type. Tables keyed by QuestionType
// are checked against this list in tests.
func QuestionTypes() []QuestionType {
	return []QuestionType{SingleChoice, MultipleChoice, OpenText, Scale, Rating, Date}
}

// Like ratings are bounded to [LikeRatingMin, LikeRatingMax].
const (
	LikeRatingMin = 1
	LikeRatingMax = 5
)

// Request types

type SurveyCreate struct {
	Title                  string       `json:"title" validate:"required,max=300"`
	QuestionType           QuestionType `json:"question_type" validate:"required"`
	MinValue               *int         `json:"min_value,omitempty"`
	MaxValue               *int         `json:"max_value,omitempty"`
	ScaleMinLabel          string       `json:"scale_min_label,omitempty" validate:"max=100"`
	ScaleMaxLabel          string       `json:"scale_max_label,omitempty" validate:"max=100"`
	AllowMultipleResponses bool         `json:"allow_multiple_responses"`
	AllowCustomOptions     bool         `json:"allow_custom_options"`
	RequireComment         bool         `json:"require_comment"`
	RatingIcon             string       `json:"rating_icon,omitempty" validate:"max=50"`
	IsActive               *bool        `json:"is_active,omitempty"`
	ExpiresAt              *time.Time   `json:"expires_at,omitempty"`
	Options                []string     `json:"options,omitempty" validate:"max=100,dive,required,max=200"`
}

type SurveyStateUpdate struct {
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type OptionVote struct {
	OptionID     string  `json:"option_id" validate:"required"`
	NumericValue *float64 `json:"numeric_value" validate:"required"`
}

type OptionResponse struct {
	OptionID     string `json:"option_id" validate:"required"`
	ResponseText string `json:"response_text" validate:"max=5000"`
}

type VoteCreate struct {
	OptionIDs        []string         `json:"option_ids,omitempty" validate:"max=100,dive,required"`
	CustomOptionText *string          `json:"custom_option_text,omitempty" validate:"omitempty,max=200"`
	NumericValue     *float64         `json:"numeric_value,omitempty"`
	DateValue        *string          `json:"date_value,omitempty" validate:"omitempty,max=40"`
	Comment          *string          `json:"comment,omitempty" validate:"omitempty,max=5000"`
	OptionVotes      []OptionVote     `json:"option_votes,omitempty" validate:"max=100,dive"`
	OptionResponses  []OptionResponse `json:"option_responses,omitempty" validate:"max=100,dive"`
	LikeRating       *int             `json:"like_rating,omitempty"`
	SurveyComment    *string          `json:"survey_comment,omitempty" validate:"omitempty,max=2000"`
}

type SurveyLikeCreate struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// Response types

type CreateSurveyResponse struct {
	SurveyID string `json:"survey_id"`
	AdminKey string `json:"admin_key"`
	Survey   Survey `json:"survey"`
}

type SubmitVoteResponse struct {
	VoteID string `json:"vote_id"`
	LikeID string `json:"like_id,omitempty"`
}

type SubmitLikeResponse struct {
	LikeID string `json:"like_id"`
}

type VoteCountResponse struct {
	SurveyID  string `json:"survey_id"`
	VoteCount int    `json:"vote_count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Domain types

type Survey struct {
	ID                     string         `json:"id"`
	Title                  string         `json:"title"`
	QuestionType           QuestionType   `json:"question_type"`
	MinValue               *int           `json:"min_value,omitempty"`
	MaxValue               *int           `json:"max_value,omitempty"`
	ScaleMinLabel          string         `json:"scale_min_label,omitempty"`
	ScaleMaxLabel          string         `json:"scale_max_label,omitempty"`
	AllowMultipleResponses bool           `json:"allow_multiple_responses"`
	AllowCustomOptions     bool           `json:"allow_custom_options"`
	RequireComment         bool           `json:"require_comment"`
	RatingIcon             string         `json:"rating_icon,omitempty"`
	IsActive               bool           `json:"is_active"`
	ExpiresAt              *time.Time     `json:"expires_at,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	Options                []SurveyOption `json:"options"`
}

// HasBounds reports whether both numeric bounds are configured.
func (s Survey) HasBounds() bool {
	return s.MinValue != nil && s.MaxValue != nil
}

// IsOpen reports whether the survey accepts votes and likes at now.
func (s Survey) IsOpen(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

type SurveyOption struct {
	ID          string    `json:"id"`
	SurveyID    string    `json:"survey_id"`
	OptionText  string    `json:"option_text"`
	OptionOrder int       `json:"option_order"`
	IsCustom    bool      `json:"is_custom"`
	CreatedAt   time.Time `json:"created_at"`
}

// Vote is one recorded voting event.
type Vote struct {
	ID           string
	SurveyID     string
	Fingerprint  string
	OptionIDs    []string
	OptionValues map[string]float64 // per-option numeric values from option_votes
	NumericValue *float64
	DateValue    *string
	CreatedAt    time.Time
}

type OpenResponse struct {
	ID           string    `json:"id"`
	VoteID       string    `json:"vote_id,omitempty"`
	OptionID     *string   `json:"option_id,omitempty"`
	ResponseText string    `json:"response_text"`
	VoterIP      *string   `json:"voter_ip,omitempty"`
	RespondedAt  time.Time `json:"responded_at"`
}

type SurveyLike struct {
	ID          string
	SurveyID    string
	Fingerprint string
	Rating      int
	Comment     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VoteSet is a read-consistent snapshot of everything recorded for one
// survey. Votes and OpenResponses are in submission order.
type VoteSet struct {
	Survey        Survey
	Votes         []Vote
	OpenResponses []OpenResponse
	Likes         []SurveyLike
	TakenAt       time.Time
}

// Size is the number of voting events in the set.
func (vs VoteSet) Size() int {
	return len(vs.Votes)
}

// Derived result types

type SurveyResult struct {
	OptionID       string   `json:"option_id"`
	OptionText     string   `json:"option_text"`
	OptionOrder    int      `json:"option_order"`
	VoteCount      int      `json:"vote_count"`
	Percentage     float64  `json:"percentage"`
	NumericAverage *float64 `json:"numeric_average,omitempty"`
	NumericMedian  *float64 `json:"numeric_median,omitempty"`
	NumericMin     *float64 `json:"numeric_min,omitempty"`
	NumericMax     *float64 `json:"numeric_max,omitempty"`
}

type NumericStats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

type ValueBucket struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

type DateBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type LikeStats struct {
	AverageRating      float64       `json:"average_rating"`
	TotalLikes         int           `json:"total_likes"`
	RatingDistribution []ValueBucket `json:"rating_distribution"`
}

type SurveyResultsResponse struct {
	SurveyID          string         `json:"survey_id"`
	QuestionType      QuestionType   `json:"question_type"`
	TotalVotes        int            `json:"total_votes"`
	TotalResponses    int            `json:"total_responses"`
	Results           []SurveyResult `json:"results"`
	NumericStats      *NumericStats  `json:"numeric_stats,omitempty"`
	ValueDistribution []ValueBucket  `json:"value_distribution,omitempty"`
	DateDistribution  []DateBucket   `json:"date_distribution,omitempty"`
	MostCommonDate    *string        `json:"most_common_date,omitempty"`
	LikeStats         *LikeStats     `json:"like_stats,omitempty"`
	OpenResponses     []OpenResponse `json:"open_responses"`
	SnapshotAt        time.Time      `json:"snapshot_at"`
	Consistency       string         `json:"consistency,omitempty"`
}
