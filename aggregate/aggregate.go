// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package aggregate turns a survey's recorded votes into a results summary.
package aggregate

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/policy"
)

// ConsistencyError means the vote set references data the survey does not
// have. It is never caused by user input.
type ConsistencyError struct {
	SurveyID string
	Detail   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent vote set for survey %s: %s", e.SurveyID, e.Detail)
}

// Aggregate computes the results summary for survey from set. It is a pure
// function: the same inputs always produce the same output.
func Aggregate(set models.VoteSet, survey models.Survey) (models.SurveyResultsResponse, error) {
	rule, err := policy.Lookup(survey.QuestionType)
	if err != nil {
		return models.SurveyResultsResponse{}, err
	}

	options := displayOrder(survey.Options)
	pos := make(map[string]int, len(options))
	for i, opt := range options {
		pos[opt.ID] = i
	}

	inconsistent := func(format string, args ...any) error {
		return &ConsistencyError{SurveyID: survey.ID, Detail: fmt.Sprintf(format, args...)}
	}

	counts := make([]int, len(options))
	optionValues := make([][]float64, len(options))
	var values []float64
	dates := make(map[string]int)

	for _, v := range set.Votes {
		for _, id := range v.OptionIDs {
			i, ok := pos[id]
			if !ok {
				return models.SurveyResultsResponse{}, inconsistent("vote %s selects unknown option %s", v.ID, id)
			}
			counts[i]++
			if x, ok := v.OptionValues[id]; ok && rule.ExpectsNumeric {
				optionValues[i] = append(optionValues[i], x)
				values = append(values, x)
			}
		}
		for id := range v.OptionValues {
			if _, ok := pos[id]; !ok {
				return models.SurveyResultsResponse{}, inconsistent("vote %s rates unknown option %s", v.ID, id)
			}
		}
		if rule.ExpectsNumeric && v.NumericValue != nil {
			values = append(values, *v.NumericValue)
		}
		if rule.ExpectsDate && v.DateValue != nil {
			dates[*v.DateValue]++
		}
	}

	total := len(set.Votes)
	resp := models.SurveyResultsResponse{
		SurveyID:      survey.ID,
		QuestionType:  survey.QuestionType,
		TotalVotes:    total,
		Results:       make([]models.SurveyResult, len(options)),
		OpenResponses: []models.OpenResponse{},
		SnapshotAt:    set.TakenAt,
	}

	var pct []float64
	if rule.ExactlyOne {
		pct = apportion(counts, total)
	} else {
		pct = make([]float64, len(counts))
		for i, c := range counts {
			pct[i] = percentage(c, total)
		}
	}

	for i, opt := range options {
		r := models.SurveyResult{
			OptionID:    opt.ID,
			OptionText:  opt.OptionText,
			OptionOrder: opt.OptionOrder,
			VoteCount:   counts[i],
			Percentage:  pct[i],
		}
		if rule.Fields.Has(policy.FieldOptionNumeric) {
			if s, ok := describe(optionValues[i]); ok {
				r.NumericAverage = &s.Average
				r.NumericMedian = &s.Median
				r.NumericMin = &s.Min
				r.NumericMax = &s.Max
			}
		}
		resp.Results[i] = r
	}

	if rule.Fields.Has(policy.FieldNumericStats) {
		if s, ok := describe(values); ok {
			resp.NumericStats = &s
		}
	}
	if rule.Fields.Has(policy.FieldValueDistribution) && survey.HasBounds() {
		resp.ValueDistribution = distribution(values, *survey.MinValue, *survey.MaxValue)
	}
	if len(dates) > 0 {
		buckets, mostCommon := dateBuckets(dates)
		if rule.Fields.Has(policy.FieldDateDistribution) {
			resp.DateDistribution = buckets
		}
		if rule.Fields.Has(policy.FieldMostCommonDate) {
			resp.MostCommonDate = &mostCommon
		}
	}

	for _, r := range set.OpenResponses {
		if r.OptionID != nil {
			if _, ok := pos[*r.OptionID]; !ok {
				return models.SurveyResultsResponse{}, inconsistent("open response %s references unknown option %s", r.ID, *r.OptionID)
			}
		}
		resp.OpenResponses = append(resp.OpenResponses, r)
	}
	resp.TotalResponses = len(resp.OpenResponses)

	if len(set.Likes) > 0 {
		likes, err := likeStats(set.Likes)
		if err != nil {
			return models.SurveyResultsResponse{}, inconsistent("%v", err)
		}
		resp.LikeStats = likes
	}

	return resp, nil
}

// displayOrder sorts by option_order, then creation time, then id.
func displayOrder(options []models.SurveyOption) []models.SurveyOption {
	sorted := slices.Clone(options)
	slices.SortStableFunc(sorted, func(a, b models.SurveyOption) int {
		if c := cmp.Compare(a.OptionOrder, b.OptionOrder); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(100*float64(count)/float64(total), 1)
}

// apportion converts counts into one-decimal percentages that sum to
// exactly 100 using the largest remainder method in tenths of a percent.
// Remainder ties go to the earlier option.
func apportion(counts []int, total int) []float64 {
	pct := make([]float64, len(counts))
	if total == 0 {
		return pct
	}

	tenths := make([]int, len(counts))
	rems := make([]int, len(counts))
	assigned := 0
	for i, c := range counts {
		num := c * 1000
		tenths[i] = num / total
		rems[i] = num % total
		assigned += tenths[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(rems[b], rems[a])
	})
	for k := 0; k < 1000-assigned && k < len(order); k++ {
		tenths[order[k]]++
	}

	for i, t := range tenths {
		pct[i] = float64(t) / 10
	}
	return pct
}

// describe returns descriptive statistics rounded to two decimals.
func describe(values []float64) (models.NumericStats, bool) {
	if len(values) == 0 {
		return models.NumericStats{}, false
	}
	data := stats.Float64Data(values)
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	return models.NumericStats{
		Average: round(mean, 2),
		Median:  round(median, 2),
		Min:     round(lo, 2),
		Max:     round(hi, 2),
		Count:   len(values),
	}, true
}

// distribution counts values per integer in [lo, hi], zero-filled.
// Fractional values fall into the nearest integer bucket.
func distribution(values []float64, lo, hi int) []models.ValueBucket {
	buckets := make([]models.ValueBucket, hi-lo+1)
	for i := range buckets {
		buckets[i].Value = lo + i
	}
	for _, v := range values {
		k := int(math.Round(v))
		if k >= lo && k <= hi {
			buckets[k-lo].Count++
		}
	}
	return buckets
}

// dateBuckets returns per-date counts in ascending date order and the most
// common date, ties going to the earliest.
func dateBuckets(dates map[string]int) ([]models.DateBucket, string) {
	keys := make([]string, 0, len(dates))
	for d := range dates {
		keys = append(keys, d)
	}
	slices.Sort(keys) // YYYY-MM-DD sorts chronologically

	buckets := make([]models.DateBucket, len(keys))
	best := ""
	for i, d := range keys {
		buckets[i] = models.DateBucket{Date: d, Count: dates[d]}
		if best == "" || dates[d] > dates[best] {
			best = d
		}
	}
	return buckets, best
}

func likeStats(likes []models.SurveyLike) (*models.LikeStats, error) {
	dist := make([]models.ValueBucket, models.LikeRatingMax-models.LikeRatingMin+1)
	for i := range dist {
		dist[i].Value = models.LikeRatingMin + i
	}

	ratings := make([]float64, 0, len(likes))
	for _, l := range likes {
		if l.Rating < models.LikeRatingMin || l.Rating > models.LikeRatingMax {
			return nil, fmt.Errorf("like %s has rating %d", l.ID, l.Rating)
		}
		dist[l.Rating-models.LikeRatingMin].Count++
		ratings = append(ratings, float64(l.Rating))
	}

	mean, _ := stats.Mean(ratings)
	return &models.LikeStats{
		AverageRating:      round(mean, 2),
		TotalLikes:         len(likes),
		RatingDistribution: dist,
	}, nil
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
