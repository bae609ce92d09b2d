// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/tally/cliparse"
	"github.com/danielhkuo/tally/engine"
	"github.com/danielhkuo/tally/handlers"
	"github.com/danielhkuo/tally/middleware"
)

func NewRouter(eng *engine.Engine, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	surveyHandler := handlers.NewSurveyHandler(eng, cfg)
	votingHandler := handlers.NewVotingHandler(eng, cfg)
	resultsHandler := handlers.NewResultsHandler(eng)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Survey definition and admin state
	mux.HandleFunc("POST /surveys", middleware.WithLogging(surveyHandler.CreateSurvey))
	mux.HandleFunc("GET /surveys/{id}", middleware.WithLogging(surveyHandler.GetSurvey))
	mux.HandleFunc("POST /surveys/{id}/state", middleware.WithLogging(surveyHandler.UpdateState))

	// Submissions
	mux.HandleFunc("POST /surveys/{id}/votes", middleware.WithLogging(votingHandler.SubmitVote))
	mux.HandleFunc("POST /surveys/{id}/likes", middleware.WithLogging(votingHandler.SubmitLike))

	// Results
	mux.HandleFunc("GET /surveys/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /surveys/{id}/vote-count", middleware.WithLogging(resultsHandler.GetVoteCount))

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tally API v1"))
	})

	return mux
}
