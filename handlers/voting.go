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
	"github.com/danielhkuo/tally/validate"
)

type VotingHandler struct {
	eng *engine.Engine
	cfg cliparse.Config
}

func NewVotingHandler(eng *engine.Engine, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{eng: eng, cfg: cfg}
}

// voterFrom identifies the submitter by client IP and the optional
// X-Voter-Session header.
func (h *VotingHandler) voterFrom(r *http.Request) validate.Voter {
	ip := middleware.GetClientIP(r)
	return validate.Voter{
		Fingerprint: auth.Fingerprint(ip, r.Header.Get("X-Voter-Session"), h.cfg.FingerprintSalt),
		IP:          ip,
	}
}

// SubmitVote handles POST /surveys/{id}/votes
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	var req models.VoteCreate
	if err := middleware.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.eng.SubmitVote(r.Context(), surveyID, h.voterFrom(r), req)
	if err != nil {
		writeEngineError(w, err, "submit vote", surveyID)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// SubmitLike handles POST /surveys/{id}/likes
// A second like from the same voter replaces the first.
func (h *VotingHandler) SubmitLike(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	var req models.SurveyLikeCreate
	if err := middleware.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	likeID, err := h.eng.SubmitLike(r.Context(), surveyID, h.voterFrom(r), req)
	if err != nil {
		writeEngineError(w, err, "submit like", surveyID)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitLikeResponse{LikeID: likeID})
}
