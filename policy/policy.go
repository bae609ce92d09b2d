// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package policy holds the per-question-type rules shared by validation
// and aggregation.
package policy

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/danielhkuo/tally/models"
)

// MaxValueSpan caps max_value - min_value + 1 so value distributions stay small.
const MaxValueSpan = 1000

// Field is a bit set of optional SurveyResultsResponse fields.
type Field uint8

const (
	FieldNumericStats Field = 1 << iota
	FieldValueDistribution
	FieldDateDistribution
	FieldMostCommonDate
	FieldOptionNumeric
)

// Has reports whether f includes every bit of other.
func (f Field) Has(other Field) bool {
	return f&other == other
}

// Rule describes what a valid vote looks like for one question type and
// which aggregate fields apply to it.
type Rule struct {
	// Choice types answer with option_ids and may accept custom options.
	Choice bool
	// ExactlyOne restricts a choice answer to a single option.
	ExactlyOne     bool
	ExpectsNumeric bool
	ExpectsDate    bool
	ExpectsText    bool
	RequiresBounds bool
	Fields         Field
}

// Cardinality returns the accepted [min, max] size of a vote's selection
// set for a survey with optionCount options.
func (r Rule) Cardinality(optionCount int, customAllowed bool) (int, int) {
	switch {
	case r.ExactlyOne:
		return 1, 1
	case r.Choice:
		if customAllowed {
			optionCount++
		}
		return 1, optionCount
	default:
		// options on non-choice types are rateable sub-items
		return 0, optionCount
	}
}

var rules = map[models.QuestionType]Rule{
	models.SingleChoice: {
		Choice:     true,
		ExactlyOne: true,
	},
	models.MultipleChoice: {
		Choice: true,
	},
	models.OpenText: {
		ExpectsText: true,
	},
	models.Scale: {
		ExpectsNumeric: true,
		RequiresBounds: true,
		Fields:         FieldNumericStats | FieldValueDistribution | FieldOptionNumeric,
	},
	models.Rating: {
		ExpectsNumeric: true,
		RequiresBounds: true,
		Fields:         FieldNumericStats | FieldValueDistribution | FieldOptionNumeric,
	},
	models.Date: {
		ExpectsDate: true,
		Fields:      FieldDateDistribution | FieldMostCommonDate,
	},
}

// Lookup returns the rule for qt. An unknown type is a ConfigurationError.
func Lookup(qt models.QuestionType) (Rule, error) {
	rule, ok := rules[qt]
	if !ok {
		return Rule{}, &ConfigurationError{
			Field:   "question_type",
			Message: fmt.Sprintf("unknown question type %q", qt),
		}
	}
	return rule, nil
}

// ConfigurationError reports a survey configuration that the engine cannot
// serve. It is raised when a survey is created, never at vote time.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid survey configuration: %s: %s", e.Field, e.Message)
}

// CheckSurvey validates a survey definition against its question type.
func CheckSurvey(req models.SurveyCreate) error {
	rule, err := Lookup(req.QuestionType)
	if err != nil {
		return err
	}

	hasMin, hasMax := req.MinValue != nil, req.MaxValue != nil
	if rule.RequiresBounds {
		if !hasMin || !hasMax {
			return &ConfigurationError{Field: "min_value", Message: fmt.Sprintf("%s requires min_value and max_value", req.QuestionType)}
		}
		if *req.MinValue > *req.MaxValue {
			return &ConfigurationError{Field: "min_value", Message: "min_value must not exceed max_value"}
		}
		if *req.MaxValue-*req.MinValue+1 > MaxValueSpan {
			return &ConfigurationError{Field: "max_value", Message: fmt.Sprintf("value range exceeds %d values", MaxValueSpan)}
		}
	} else if hasMin || hasMax {
		return &ConfigurationError{Field: "min_value", Message: fmt.Sprintf("%s does not take numeric bounds", req.QuestionType)}
	}

	if req.AllowCustomOptions && !rule.Choice {
		return &ConfigurationError{Field: "allow_custom_options", Message: fmt.Sprintf("%s does not take custom options", req.QuestionType)}
	}
	if rule.Choice && len(req.Options) == 0 && !req.AllowCustomOptions {
		return &ConfigurationError{Field: "options", Message: "choice surveys need at least one option"}
	}

	seen := make(map[string]bool, len(req.Options))
	for _, text := range req.Options {
		key := NormalizeOptionText(text)
		if key == "" {
			return &ConfigurationError{Field: "options", Message: "option text must not be blank"}
		}
		if seen[key] {
			return &ConfigurationError{Field: "options", Message: fmt.Sprintf("duplicate option %q", text)}
		}
		seen[key] = true
	}
	return nil
}

// NormalizeOptionText folds option text to the key used for uniqueness:
// NFC, case-folded, with runs of whitespace collapsed to one space.
func NormalizeOptionText(text string) string {
	folded := cases.Fold().String(norm.NFC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}
