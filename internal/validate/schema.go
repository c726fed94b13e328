package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/gradelens/internal/model"
)

// DefaultConfidence is used when the confidence column or cell is absent
const DefaultConfidence = 1.0

var (
	errEmpty     = errors.New("empty value")
	errNotFinite = errors.New("value is not finite")
	errNotBool   = errors.New("not a boolean")
)

// Validator turns raw rows into a validated Dataset
type Validator struct{}

// NewValidator creates a new schema validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks columns, coerces types, applies defaults and enforces
// domain invariants. header is the input column order; when nil it is
// derived from the rows (sorted union of keys), and nil with no rows is an
// empty dataset since there is no schema to check. Any failure aborts the
// whole load: no partial dataset is returned. rows is never modified.
func (v *Validator) Validate(header []string, rows []model.Row) (model.Dataset, error) {
	if header == nil {
		if len(rows) == 0 {
			return model.Dataset{Records: []model.GradingRecord{}}, nil
		}
		header = columnsOf(rows)
	}

	if missing := missingColumns(header); len(missing) > 0 {
		return model.Dataset{}, &SchemaError{Missing: missing}
	}

	hasConfidence := contains(header, model.ColConfidence)
	hasFlags := contains(header, model.ColFlags)

	records := make([]model.GradingRecord, len(rows))
	for i, row := range rows {
		rec, err := coerceRow(i, row, hasConfidence, hasFlags)
		if err != nil {
			return model.Dataset{}, err
		}
		records[i] = rec
	}

	if err := checkInvariants(records); err != nil {
		return model.Dataset{}, err
	}

	return model.Dataset{
		Records: records,
		Columns: append([]string(nil), header...),
	}, nil
}

func coerceRow(idx int, row model.Row, hasConfidence, hasFlags bool) (model.GradingRecord, error) {
	var rec model.GradingRecord
	var err error

	rec.StudentID = toString(row[model.ColStudentID])
	rec.QuestionID = toString(row[model.ColQuestionID])

	if rec.TAScore, err = toFloat(row[model.ColTAScore]); err != nil {
		return rec, &TypeCoercionError{Row: idx, Column: model.ColTAScore, Value: row[model.ColTAScore], Err: err}
	}
	if rec.LLMScore, err = toFloat(row[model.ColLLMScore]); err != nil {
		return rec, &TypeCoercionError{Row: idx, Column: model.ColLLMScore, Value: row[model.ColLLMScore], Err: err}
	}
	if rec.MaxPoints, err = toFloat(row[model.ColMaxPoints]); err != nil {
		return rec, &TypeCoercionError{Row: idx, Column: model.ColMaxPoints, Value: row[model.ColMaxPoints], Err: err}
	}

	rec.Confidence = DefaultConfidence
	if hasConfidence && !isBlank(row[model.ColConfidence]) {
		if rec.Confidence, err = toFloat(row[model.ColConfidence]); err != nil {
			return rec, &TypeCoercionError{Row: idx, Column: model.ColConfidence, Value: row[model.ColConfidence], Err: err}
		}
	}

	if hasFlags && !isBlank(row[model.ColFlags]) {
		if rec.Flags, err = toBool(row[model.ColFlags]); err != nil {
			return rec, &TypeCoercionError{Row: idx, Column: model.ColFlags, Value: row[model.ColFlags], Err: err}
		}
	}

	return rec, nil
}

// checkInvariants reports the first violated rule with every offending row
func checkInvariants(records []model.GradingRecord) error {
	rules := []struct {
		column string
		reason string
		bad    func(r model.GradingRecord) bool
	}{
		{model.ColStudentID, "must not be empty", func(r model.GradingRecord) bool { return r.StudentID == "" }},
		{model.ColQuestionID, "must not be empty", func(r model.GradingRecord) bool { return r.QuestionID == "" }},
		{model.ColMaxPoints, "must be greater than 0", func(r model.GradingRecord) bool { return r.MaxPoints <= 0 }},
		{model.ColConfidence, "must be within [0, 1]", func(r model.GradingRecord) bool { return r.Confidence < 0 || r.Confidence > 1 }},
	}

	for _, rule := range rules {
		var rows []int
		for i, r := range records {
			if rule.bad(r) {
				rows = append(rows, i)
			}
		}
		if len(rows) > 0 {
			return &ValidationError{Column: rule.column, Rows: rows, Reason: rule.reason}
		}
	}
	return nil
}

func missingColumns(header []string) []string {
	var missing []string
	for _, col := range model.RequiredColumns {
		if !contains(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

func columnsOf(rows []model.Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, errEmpty
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, errEmpty
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case int:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case json.Number:
		return toBool(x.String())
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
	}
	return false, errNotBool
}
