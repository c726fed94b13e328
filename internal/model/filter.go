package model

// FilterSpec narrows a dataset to a view. Every field is optional: nil or
// empty imposes no constraint. Predicates combine with AND.
type FilterSpec struct {
	QuestionIDs     []string `json:"question_ids,omitempty" yaml:"question_ids,omitempty" validate:"omitempty,dive,required"`
	StudentIDs      []string `json:"student_ids,omitempty" yaml:"student_ids,omitempty" validate:"omitempty,dive,required"`
	MinConfidence   *float64 `json:"min_confidence,omitempty" yaml:"min_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxConfidence   *float64 `json:"max_confidence,omitempty" yaml:"max_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinAbsError     *float64 `json:"min_abs_error,omitempty" yaml:"min_abs_error,omitempty" validate:"omitempty,gte=0"`
	MinPercentError *float64 `json:"min_percent_error,omitempty" yaml:"min_percent_error,omitempty" validate:"omitempty,gte=0"`
	MaxPercentError *float64 `json:"max_percent_error,omitempty" yaml:"max_percent_error,omitempty" validate:"omitempty,gte=0"`
	FlaggedOnly     bool     `json:"flagged_only,omitempty" yaml:"flagged_only,omitempty"`
}

// IsZero reports whether the spec imposes no constraint at all.
func (f FilterSpec) IsZero() bool {
	return len(f.QuestionIDs) == 0 &&
		len(f.StudentIDs) == 0 &&
		f.MinConfidence == nil &&
		f.MaxConfidence == nil &&
		f.MinAbsError == nil &&
		f.MinPercentError == nil &&
		f.MaxPercentError == nil &&
		!f.FlaggedOnly
}

// Float returns a pointer to v, for building specs in code.
func Float(v float64) *float64 {
	return &v
}
