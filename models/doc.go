// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - SurveyCreate: title, question_type, bounds, flags, options
  - SurveyStateUpdate: is_active, expires_at
  - VoteCreate: option_ids, custom_option_text, numeric_value, date_value,
    comment, option_votes, option_responses, like_rating, survey_comment
  - SurveyLikeCreate: rating, comment

Request structs carry validate tags for shape checks. Semantic checks
against a survey's configuration live in package validate.

# Response Types

  - CreateSurveyResponse: survey_id, admin_key, survey
  - SubmitVoteResponse: vote_id, like_id
  - SubmitLikeResponse: like_id
  - VoteCountResponse: survey_id, vote_count
  - SurveyResultsResponse: totals, per-option results, numeric_stats,
    value_distribution, date_distribution, most_common_date, like_stats,
    open_responses
  - ErrorResponse: error, reason, message

# Domain Types

  - Survey, SurveyOption: configuration, read-only to the engine
  - Vote, OpenResponse, SurveyLike: recorded submissions
  - VoteSet: a read-consistent snapshot of one survey

# Question Types

	SINGLE_CHOICE, MULTIPLE_CHOICE, OPEN_TEXT, SCALE, RATING, DATE
*/
package models
