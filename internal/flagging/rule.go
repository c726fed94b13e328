// Package flagging decides which grading records need human review.
package flagging

import (
	"math"
	"sort"

	"github.com/ppiankov/gradelens/internal/model"
)

// Reason names a sub-condition that caused a record to be flagged
type Reason string

const (
	ReasonLowConfidence    Reason = "low_confidence"
	ReasonHighPercentError Reason = "high_percent_error"
	ReasonHighAbsError     Reason = "high_abs_error"
)

// Rule is the auto-flag rule: a record is flagged when ANY of the three
// sub-conditions holds.
type Rule struct {
	ConfidenceThreshold   float64 // flag when confidence < threshold
	PercentErrorThreshold float64 // flag when percent_error > threshold
	AbsErrorFactor        float64 // flag when abs_error > factor * max_points
}

// DefaultRule returns the standard thresholds (0.6, 25%, 30% of max points)
func DefaultRule() Rule {
	return Rule{
		ConfidenceThreshold:   0.6,
		PercentErrorThreshold: 25,
		AbsErrorFactor:        0.3,
	}
}

// RuleFromConfig builds a rule from configuration
func RuleFromConfig(cfg model.FlaggingConfig) Rule {
	return Rule{
		ConfidenceThreshold:   cfg.ConfidenceThreshold,
		PercentErrorThreshold: cfg.PercentErrorThreshold,
		AbsErrorFactor:        cfg.AbsErrorFactor,
	}
}

// PercentError returns abs_error as a percentage of max_points, +Inf when
// max_points is not positive.
func PercentError(absError, maxPoints float64) float64 {
	if maxPoints > 0 {
		return absError / maxPoints * 100
	}
	return math.Inf(1)
}

// ShouldFlag is the pure flag predicate over a record's numeric fields.
func (r Rule) ShouldFlag(confidence, absError, percentError, maxPoints float64) bool {
	return len(r.Reasons(confidence, absError, percentError, maxPoints)) > 0
}

// Reasons lists the sub-conditions that hold, in rule order.
func (r Rule) Reasons(confidence, absError, percentError, maxPoints float64) []Reason {
	var reasons []Reason
	if confidence < r.ConfidenceThreshold {
		reasons = append(reasons, ReasonLowConfidence)
	}
	if percentError > r.PercentErrorThreshold {
		reasons = append(reasons, ReasonHighPercentError)
	}
	if absError > r.AbsErrorFactor*maxPoints {
		reasons = append(reasons, ReasonHighAbsError)
	}
	return reasons
}

// Apply computes derived fields and sets Flags on a copy of ds, overwriting
// any flags read from input.
func (r Rule) Apply(ds model.Dataset) model.Dataset {
	out := ds.Clone()
	for i := range out.Records {
		rec := &out.Records[i]
		rec.Error = rec.LLMScore - rec.TAScore
		rec.AbsError = math.Abs(rec.Error)
		pct := PercentError(rec.AbsError, rec.MaxPoints)
		rec.PercentError = model.Value(pct)
		if rec.MaxPoints > 0 {
			rec.NormalizedTA = rec.TAScore / rec.MaxPoints
			rec.NormalizedLLM = rec.LLMScore / rec.MaxPoints
		}
		rec.Flags = r.ShouldFlag(rec.Confidence, rec.AbsError, pct, rec.MaxPoints)
	}
	out.Flagged = true
	return out
}

// Priority ranks flagged records for the review queue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PriorityFor buckets percent error: <=15 low, <=30 medium, otherwise high.
func PriorityFor(percentError float64) Priority {
	switch {
	case percentError <= 15:
		return PriorityLow
	case percentError <= 30:
		return PriorityMedium
	default:
		return PriorityHigh
	}
}

// ReviewItem is a flagged record with the reasons it was flagged
type ReviewItem struct {
	Index    int                 `json:"index"` // position in the source view
	Record   model.GradingRecord `json:"record"`
	Reasons  []Reason            `json:"reasons"`
	Priority Priority            `json:"priority"`
}

// ReviewQueue returns the flagged records of a flagged dataset, largest
// absolute error first. Ties keep dataset order.
func (r Rule) ReviewQueue(ds model.Dataset) []ReviewItem {
	items := []ReviewItem{}
	for i, rec := range ds.Records {
		if !rec.Flags {
			continue
		}
		pct := rec.PercentError.Float()
		items = append(items, ReviewItem{
			Index:    i,
			Record:   rec,
			Reasons:  r.Reasons(rec.Confidence, rec.AbsError, pct, rec.MaxPoints),
			Priority: PriorityFor(pct),
		})
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Record.AbsError > items[b].Record.AbsError
	})
	return items
}
