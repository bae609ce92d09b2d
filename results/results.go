// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/tally/aggregate"
	"github.com/danielhkuo/tally/models"
)

// Mode is the consistency guarantee a deployment gives readers.
type Mode string

const (
	// ModeStrong aggregates a fresh snapshot on every read.
	ModeStrong Mode = "strong"
	// ModeBounded serves cached results for large surveys while they are
	// younger than MaxStaleness.
	ModeBounded Mode = "bounded"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrong, ModeBounded:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown results mode %q", s)
}

type Config struct {
	Mode Mode
	// Threshold is the vote count above which bounded mode caches.
	Threshold    int
	MaxStaleness time.Duration
}

// Snapshotter reads a consistent VoteSet for a survey.
type Snapshotter interface {
	Snapshot(ctx context.Context, surveyID string) (models.VoteSet, error)
}

// Service answers getResults requests under the configured mode.
type Service struct {
	source Snapshotter
	cache  Cache
	cfg    Config
	group  singleflight.Group
	now    func() time.Time
	logger *slog.Logger
}

// NewService builds a Service. cache may be nil in strong mode; bounded
// mode without a cache uses an in-process MemoryCache.
func NewService(source Snapshotter, cache Cache, cfg Config, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		cache:  cache,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("module", "results"),
	}
}

// Mode reports the configured consistency mode.
func (s *Service) Mode() Mode {
	return s.cfg.Mode
}

// GetResults returns the results summary for surveyID.
//
// In bounded mode, stale or missing entries are recomputed through a
// per-survey single-flight group: concurrent readers wait on one
// recomputation instead of each taking their own snapshot.
func (s *Service) GetResults(ctx context.Context, surveyID string) (models.SurveyResultsResponse, error) {
	if s.cfg.Mode != ModeBounded {
		entry, err := s.compute(ctx, surveyID)
		if err != nil {
			return models.SurveyResultsResponse{}, err
		}
		return s.stamp(entry.Results), nil
	}

	if entry, ok := s.lookup(ctx, surveyID); ok {
		return s.stamp(entry.Results), nil
	}

	v, err, _ := s.group.Do(surveyID, func() (any, error) {
		// the first caller's cancellation must not fail the others
		bg := context.WithoutCancel(ctx)
		entry, err := s.compute(bg, surveyID)
		if err != nil {
			return Entry{}, err
		}
		if entry.Size > s.cfg.Threshold {
			if err := s.cache.Put(bg, entry, s.cfg.MaxStaleness); err != nil {
				s.logger.Warn("failed to cache results", "survey_id", surveyID, "error", err)
			}
		}
		return entry, nil
	})
	if err != nil {
		return models.SurveyResultsResponse{}, err
	}
	return s.stamp(v.(Entry).Results), nil
}

// lookup returns a cached entry that may still be served.
func (s *Service) lookup(ctx context.Context, surveyID string) (Entry, bool) {
	entry, ok, err := s.cache.Get(ctx, surveyID)
	if err != nil {
		s.logger.Warn("results cache read failed", "survey_id", surveyID, "error", err)
		return Entry{}, false
	}
	if !ok || entry.Size <= s.cfg.Threshold {
		return Entry{}, false
	}
	if s.now().Sub(entry.ComputedAt) >= s.cfg.MaxStaleness {
		return Entry{}, false
	}
	return entry, true
}

func (s *Service) compute(ctx context.Context, surveyID string) (Entry, error) {
	set, err := s.source.Snapshot(ctx, surveyID)
	if err != nil {
		return Entry{}, err
	}
	resp, err := aggregate.Aggregate(set, set.Survey)
	if err != nil {
		s.logger.Error("aggregation failed", "survey_id", surveyID, "error", err)
		return Entry{}, err
	}
	return Entry{
		SurveyID:   surveyID,
		Size:       set.Size(),
		ComputedAt: s.now(),
		Results:    resp,
	}, nil
}

func (s *Service) stamp(resp models.SurveyResultsResponse) models.SurveyResultsResponse {
	resp.Consistency = string(s.cfg.Mode)
	return resp
}
