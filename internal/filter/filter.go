// Package filter narrows a dataset to the records matching a FilterSpec.
package filter

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
)

// ErrInvalidFilter is wrapped by every spec validation failure
var ErrInvalidFilter = errors.New("invalid filter")

var (
	validateOnce sync.Once
	structCheck  *validator.Validate
)

func specValidator() *validator.Validate {
	validateOnce.Do(func() {
		structCheck = validator.New(validator.WithRequiredStructEnabled())
	})
	return structCheck
}

// Validate checks field ranges and that min bounds do not exceed max bounds.
func Validate(spec model.FilterSpec) error {
	if err := specValidator().Struct(spec); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	if spec.MinConfidence != nil && spec.MaxConfidence != nil && *spec.MinConfidence > *spec.MaxConfidence {
		return fmt.Errorf("%w: min_confidence %.3f exceeds max_confidence %.3f", ErrInvalidFilter, *spec.MinConfidence, *spec.MaxConfidence)
	}
	if spec.MinPercentError != nil && spec.MaxPercentError != nil && *spec.MinPercentError > *spec.MaxPercentError {
		return fmt.Errorf("%w: min_percent_error %.2f exceeds max_percent_error %.2f", ErrInvalidFilter, *spec.MinPercentError, *spec.MaxPercentError)
	}
	return nil
}

// Apply returns the maximal order-preserving subsequence of ds whose records
// satisfy every predicate in spec. ds is not modified. An empty result is
// not an error; only an invalid spec is.
func Apply(ds model.Dataset, spec model.FilterSpec) (model.Dataset, error) {
	if err := Validate(spec); err != nil {
		return model.Dataset{}, err
	}

	match := compile(spec)
	out := make([]model.GradingRecord, 0, len(ds.Records))
	for _, rec := range ds.Records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return ds.WithRecords(out), nil
}

// Matches reports whether one record satisfies spec. spec is assumed valid.
func Matches(rec model.GradingRecord, spec model.FilterSpec) bool {
	return compile(spec)(rec)
}

func compile(spec model.FilterSpec) func(model.GradingRecord) bool {
	questions := toSet(spec.QuestionIDs)
	students := toSet(spec.StudentIDs)

	return func(rec model.GradingRecord) bool {
		if questions != nil && !questions[rec.QuestionID] {
			return false
		}
		if students != nil && !students[rec.StudentID] {
			return false
		}
		if spec.MinConfidence != nil && rec.Confidence < *spec.MinConfidence {
			return false
		}
		if spec.MaxConfidence != nil && rec.Confidence > *spec.MaxConfidence {
			return false
		}

		// derived from scores so unflagged views filter the same way
		absErr := math.Abs(rec.LLMScore - rec.TAScore)
		if spec.MinAbsError != nil && absErr < *spec.MinAbsError {
			return false
		}
		if spec.MinPercentError != nil || spec.MaxPercentError != nil {
			pct := flagging.PercentError(absErr, rec.MaxPoints)
			if spec.MinPercentError != nil && pct < *spec.MinPercentError {
				return false
			}
			if spec.MaxPercentError != nil && pct > *spec.MaxPercentError {
				return false
			}
		}
		if spec.FlaggedOnly && !rec.Flags {
			return false
		}
		return true
	}
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
