package model

// Input column names recognised by the validator and written by exports.
const (
	ColStudentID  = "student_id"
	ColQuestionID = "question_id"
	ColTAScore    = "ta_score"
	ColLLMScore   = "llm_score"
	ColMaxPoints  = "max_points"
	ColConfidence = "confidence"
	ColFlags      = "flags"

	ColAbsError     = "abs_error"
	ColPercentError = "percent_error"
	ColFlag         = "flag"
)

// RequiredColumns must be present in every input dataset.
var RequiredColumns = []string{ColStudentID, ColQuestionID, ColTAScore, ColLLMScore, ColMaxPoints}

// OriginalColumns is the full input column set after optional columns are defaulted.
var OriginalColumns = []string{ColStudentID, ColQuestionID, ColTAScore, ColLLMScore, ColMaxPoints, ColConfidence, ColFlags}

// DerivedColumns are appended to tabular exports.
var DerivedColumns = []string{ColAbsError, ColPercentError, ColFlag}

// Row is one raw input row: column name to cell value. Cells are strings
// when read from delimited text, or numbers/bools when decoded from JSON.
type Row map[string]any

// GradingRecord is one student x question submission
type GradingRecord struct {
	StudentID  string  `json:"student_id"`
	QuestionID string  `json:"question_id"`
	TAScore    float64 `json:"ta_score"`
	LLMScore   float64 `json:"llm_score"`
	MaxPoints  float64 `json:"max_points"`
	Confidence float64 `json:"confidence"`
	Flags      bool    `json:"flags"`

	// Derived by the flagging pass
	Error         float64 `json:"error"`
	AbsError      float64 `json:"abs_error"`
	PercentError  Value   `json:"percent_error"`
	NormalizedTA  float64 `json:"normalized_ta"`
	NormalizedLLM float64 `json:"normalized_llm"`
}

// Dataset is an ordered sequence of grading records sharing one schema.
// Order is input order. Datasets are treated as immutable values: every
// transformation returns a new Dataset.
type Dataset struct {
	Records []GradingRecord `json:"records"`
	Columns []string        `json:"columns"` // input columns as read (before defaulting)
	Flagged bool            `json:"flagged"` // derived fields and flags have been computed
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Records: make([]GradingRecord, len(d.Records)),
		Columns: append([]string(nil), d.Columns...),
		Flagged: d.Flagged,
	}
	copy(out.Records, d.Records)
	return out
}

// WithRecords returns a dataset sharing d's schema but holding recs.
func (d Dataset) WithRecords(recs []GradingRecord) Dataset {
	return Dataset{
		Records: recs,
		Columns: append([]string(nil), d.Columns...),
		Flagged: d.Flagged,
	}
}

// HasColumn reports whether the input carried the named column.
func (d Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}
