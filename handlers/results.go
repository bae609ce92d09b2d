// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/tally/engine"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/models"
)

type ResultsHandler struct {
	eng *engine.Engine
}

func NewResultsHandler(eng *engine.Engine) *ResultsHandler {
	return &ResultsHandler{eng: eng}
}

// GetResults handles GET /surveys/{id}/results
// Results are visible while the survey is open; the consistency field says
// whether they may lag behind recent votes.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	results, err := h.eng.Results(r.Context(), surveyID)
	if err != nil {
		writeEngineError(w, err, "get results", surveyID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// GetVoteCount handles GET /surveys/{id}/vote-count
func (h *ResultsHandler) GetVoteCount(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	count, err := h.eng.VoteCount(r.Context(), surveyID)
	if err != nil {
		writeEngineError(w, err, "get vote count", surveyID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteCountResponse{
		SurveyID:  surveyID,
		VoteCount: count,
	})
}
