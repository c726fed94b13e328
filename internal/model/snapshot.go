package model

import "time"

// Snapshot is the metrics computed over one dataset view
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalItems     int `json:"total_items"`
	TotalStudents  int `json:"total_students"`
	TotalQuestions int `json:"total_questions"`

	// Error metrics
	MAE      Value `json:"mae"`
	RMSE     Value `json:"rmse"`
	MAPE     Value `json:"mape"`      // mean percent_error (relative to max_points)
	MaxError Value `json:"max_error"` // largest abs_error

	// Agreement
	Bias          Value `json:"mean_bias"` // mean(llm - ta)
	StdError      Value `json:"std_error"` // sample std of (llm - ta)
	LowerLoA      Value `json:"lower_loa"` // Bland-Altman: bias - 1.96*std
	UpperLoA      Value `json:"upper_loa"` // Bland-Altman: bias + 1.96*std
	PearsonR      Value `json:"pearson_r"`
	PearsonP      Value `json:"pearson_p"`
	SpearmanR     Value `json:"spearman_r"`
	SpearmanP     Value `json:"spearman_p"`

	MeanConfidence Value `json:"mean_confidence"`

	// Flags
	FlagCount          int   `json:"flagged_count"`
	FlagPercent        Value `json:"flagged_percent"`
	LowConfidenceCount int   `json:"low_confidence_count"`
	HighErrorCount     int   `json:"high_error_count"`

	Questions []QuestionSummary `json:"questions"`
	Students  []StudentSummary  `json:"students"` // largest MAE first
	Signals   []Signal          `json:"signals"`
}

// QuestionSummary aggregates one question_id group
type QuestionSummary struct {
	QuestionID     string `json:"question_id"`
	Count          int    `json:"count"`
	MAE            Value  `json:"mae"`
	StdAbsError    Value  `json:"std_abs_error"`
	MaxAbsError    Value  `json:"max_abs_error"`
	MeanConfidence Value  `json:"mean_confidence"`
	FlagCount      int    `json:"flagged_count"`
	FlagPercent    Value  `json:"flagged_percent"`
	PearsonR       Value  `json:"pearson_r"`
}

// StudentSummary aggregates one student_id group
type StudentSummary struct {
	StudentID        string `json:"student_id"`
	Count            int    `json:"count"`
	MAE              Value  `json:"mae"`
	MeanPercentError Value  `json:"mean_percent_error"`
	FlagCount        int    `json:"flagged_count"`
}

// Signal is a human-readable interpretation of one metric
type Signal struct {
	Type        SignalType     `json:"type"`
	Severity    SignalSeverity `json:"severity"`
	Label       string         `json:"label"`       // e.g. "strong", "moderate"
	Description string         `json:"description"` // human-readable
	Value       Value          `json:"value"`
}

// SignalType classifies the metric being interpreted
type SignalType string

const (
	SignalPearson   SignalType = "pearson_correlation"
	SignalSpearman  SignalType = "spearman_correlation"
	SignalBias      SignalType = "mean_bias"
	SignalSpread    SignalType = "error_spread"
	SignalRMSE      SignalType = "rmse"
	SignalMAPE      SignalType = "mape"
	SignalAgreement SignalType = "agreement_level"
)

// SignalSeverity indicates how concerning the signal is
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// QuestionOrder selects how per-question summaries are ordered
type QuestionOrder string

const (
	OrderAppearance QuestionOrder = "appearance" // first appearance in the dataset
	OrderID         QuestionOrder = "id"         // lexical question_id
	OrderMAEDesc    QuestionOrder = "mae_desc"   // highest MAE first
)

// ParseQuestionOrder validates a user-supplied order name.
func ParseQuestionOrder(s string) (QuestionOrder, bool) {
	switch QuestionOrder(s) {
	case "", OrderAppearance:
		return OrderAppearance, true
	case OrderID:
		return OrderID, true
	case OrderMAEDesc:
		return OrderMAEDesc, true
	}
	return "", false
}

// Signal returns the first signal of the given type, if present.
func (s Snapshot) Signal(t SignalType) (Signal, bool) {
	for _, sig := range s.Signals {
		if sig.Type == t {
			return sig, true
		}
	}
	return Signal{}, false
}
