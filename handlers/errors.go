// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/tally/aggregate"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/policy"
	"github.com/danielhkuo/tally/store"
	"github.com/danielhkuo/tally/validate"
)

// statusForReason maps a rejection reason to its HTTP status.
func statusForReason(reason validate.Reason) int {
	switch reason {
	case validate.SurveyClosed, validate.DuplicateVote:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeEngineError writes the response for an error returned by the engine.
// Anything that is not a client error is logged and reported as opaque.
func writeEngineError(w http.ResponseWriter, err error, op, surveyID string) {
	var verr *validate.ValidationError
	var cerr *policy.ConfigurationError
	var inconsistent *aggregate.ConsistencyError

	switch {
	case errors.As(err, &verr):
		middleware.RejectionResponse(w, statusForReason(verr.Reason), string(verr.Reason), verr.Message)
	case errors.As(err, &cerr):
		middleware.RejectionResponse(w, http.StatusBadRequest, "ConfigurationError", cerr.Error())
	case errors.Is(err, store.ErrSurveyNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Survey not found")
	case errors.As(err, &inconsistent):
		slog.Error("vote set inconsistent", "op", op, "survey_id", surveyID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
	default:
		slog.Error("request failed", "op", op, "survey_id", surveyID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeDecodeError(w http.ResponseWriter, err error) {
	middleware.ErrorResponse(w, http.StatusBadRequest, middleware.DescribeDecodeError(err))
}
