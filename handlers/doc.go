// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the tally API.

# Handler Types

Each handler wraps the engine and, where it needs salts, the config:

  - SurveyHandler: create, read and open/close surveys
  - VotingHandler: vote and like submission
  - ResultsHandler: aggregated results and vote counts

	surveyHandler := handlers.NewSurveyHandler(eng, cfg)

# Status Codes

Rejected submissions carry a reason in the error body:

	409 SurveyClosed, DuplicateVote
	422 InvalidOptionCount, UnknownOption, CustomOptionsDisabled,
	    OutOfRange, InvalidDate, MissingComment
	400 ConfigurationError, malformed JSON, failed field checks
	404 unknown survey

Anything else is logged and returned as an opaque 500.

# Voter Identity

Votes and likes are keyed by a fingerprint of the client IP and the
optional X-Voter-Session header. Admin operations require the X-Admin-Key
header returned when the survey was created.
*/
package handlers
