// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/tally/auth"
	"github.com/danielhkuo/tally/cliparse"
	"github.com/danielhkuo/tally/engine"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/models"
)

type SurveyHandler struct {
	eng *engine.Engine
	cfg cliparse.Config
}

func NewSurveyHandler(eng *engine.Engine, cfg cliparse.Config) *SurveyHandler {
	return &SurveyHandler{eng: eng, cfg: cfg}
}

// CreateSurvey handles POST /surveys
func (h *SurveyHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req models.SurveyCreate
	if err := middleware.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	survey, err := h.eng.CreateSurvey(r.Context(), req)
	if err != nil {
		writeEngineError(w, err, "create survey", "")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSurveyResponse{
		SurveyID: survey.ID,
		AdminKey: auth.GenerateAdminKey(survey.ID, h.cfg.AdminKeySalt),
		Survey:   survey,
	})
}

// GetSurvey handles GET /surveys/{id}
func (h *SurveyHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	survey, err := h.eng.Survey(r.Context(), surveyID)
	if err != nil {
		writeEngineError(w, err, "get survey", surveyID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, survey)
}

// UpdateState handles POST /surveys/{id}/state
// Requires the X-Admin-Key header issued at creation.
func (h *SurveyHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(surveyID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.SurveyStateUpdate
	if err := middleware.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.IsActive == nil && req.ExpiresAt == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "is_active or expires_at is required")
		return
	}

	survey, err := h.eng.UpdateSurveyState(r.Context(), surveyID, req)
	if err != nil {
		writeEngineError(w, err, "update survey state", surveyID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, survey)
}
