package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gradelens/internal/model"
)

var fullHeader = []string{"student_id", "question_id", "ta_score", "llm_score", "max_points", "confidence", "flags"}

func row(sid, qid, ta, llm, max string) model.Row {
	return model.Row{
		"student_id":  sid,
		"question_id": qid,
		"ta_score":    ta,
		"llm_score":   llm,
		"max_points":  max,
	}
}

func TestValidate_CoercesAndPreservesOrder(t *testing.T) {
	rows := []model.Row{
		{"student_id": "S1", "question_id": "Q1", "ta_score": "8", "llm_score": "7.5", "max_points": "10", "confidence": "0.9", "flags": "true"},
		{"student_id": "S2", "question_id": "Q1", "ta_score": "5", "llm_score": "9", "max_points": "10", "confidence": "0.3", "flags": "0"},
		{"student_id": 3.0, "question_id": "Q2", "ta_score": 7.0, "llm_score": 7, "max_points": 15, "confidence": 1.0, "flags": false},
	}

	ds, err := NewValidator().Validate(fullHeader, rows)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, "S1", ds.Records[0].StudentID)
	assert.Equal(t, 7.5, ds.Records[0].LLMScore)
	assert.True(t, ds.Records[0].Flags)
	assert.Equal(t, "S2", ds.Records[1].StudentID)
	assert.False(t, ds.Records[1].Flags)
	assert.Equal(t, "3", ds.Records[2].StudentID)
	assert.Equal(t, 15.0, ds.Records[2].MaxPoints)
	assert.Equal(t, fullHeader, ds.Columns)
	assert.False(t, ds.Flagged)
}

func TestValidate_DefaultsOptionalColumns(t *testing.T) {
	header := []string{"student_id", "question_id", "ta_score", "llm_score", "max_points"}
	rows := []model.Row{
		row("S1", "Q1", "8", "8", "10"),
		row("S2", "Q1", "5", "6", "10"),
	}

	ds, err := NewValidator().Validate(header, rows)
	require.NoError(t, err)
	for _, r := range ds.Records {
		assert.Equal(t, 1.0, r.Confidence)
		assert.False(t, r.Flags)
	}
	assert.False(t, ds.HasColumn("confidence"))
}

func TestValidate_BlankOptionalCellsDefault(t *testing.T) {
	r := row("S1", "Q1", "8", "8", "10")
	r["confidence"] = " "
	r["flags"] = ""

	ds, err := NewValidator().Validate(fullHeader, []model.Row{r})
	require.NoError(t, err)
	assert.Equal(t, 1.0, ds.Records[0].Confidence)
	assert.False(t, ds.Records[0].Flags)
}

func TestValidate_MissingColumns(t *testing.T) {
	header := []string{"student_id", "ta_score", "max_points"}

	_, err := NewValidator().Validate(header, nil)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"question_id", "llm_score"}, schemaErr.Missing)
	assert.ErrorIs(t, err, ErrInvalidDataset)
	assert.Contains(t, err.Error(), "question_id, llm_score")
}

func TestValidate_HeaderDerivedFromRows(t *testing.T) {
	rows := []model.Row{row("S1", "Q1", "1", "2", "5")}

	ds, err := NewValidator().Validate(nil, rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"llm_score", "max_points", "question_id", "student_id", "ta_score"}, ds.Columns)
}

func TestValidate_NoHeaderNoRowsIsEmpty(t *testing.T) {
	ds, err := NewValidator().Validate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.NotNil(t, ds.Records)

	_, err = NewValidator().Validate([]string{"student_id"}, nil)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestValidate_TypeCoercionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r model.Row)
		column string
	}{
		{"non-numeric ta", func(r model.Row) { r["ta_score"] = "eight" }, "ta_score"},
		{"empty llm", func(r model.Row) { r["llm_score"] = "" }, "llm_score"},
		{"nan max", func(r model.Row) { r["max_points"] = "NaN" }, "max_points"},
		{"bad confidence", func(r model.Row) { r["confidence"] = "high" }, "confidence"},
		{"bad flag", func(r model.Row) { r["flags"] = "maybe" }, "flags"},
		{"bool score", func(r model.Row) { r["ta_score"] = true }, "ta_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []model.Row{row("S1", "Q1", "1", "1", "5"), row("S2", "Q1", "1", "1", "5")}
			tt.mutate(rows[1])

			_, err := NewValidator().Validate(fullHeader, rows)
			require.Error(t, err)

			var typeErr *TypeCoercionError
			require.True(t, errors.As(err, &typeErr), "got %T: %v", err, err)
			assert.Equal(t, 1, typeErr.Row)
			assert.Equal(t, tt.column, typeErr.Column)
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}
}

func TestValidate_DomainInvariants(t *testing.T) {
	tests := []struct {
		name   string
		rows   []model.Row
		column string
		bad    []int
	}{
		{
			name:   "zero and negative max points",
			rows:   []model.Row{row("S1", "Q1", "1", "1", "0"), row("S2", "Q1", "1", "1", "5"), row("S3", "Q1", "1", "1", "-2")},
			column: "max_points",
			bad:    []int{0, 2},
		},
		{
			name: "confidence out of range is rejected",
			rows: func() []model.Row {
				a := row("S1", "Q1", "1", "1", "5")
				a["confidence"] = "1.2"
				b := row("S2", "Q1", "1", "1", "5")
				b["confidence"] = "-0.1"
				return []model.Row{a, b}
			}(),
			column: "confidence",
			bad:    []int{0, 1},
		},
		{
			name:   "empty student id",
			rows:   []model.Row{row(" ", "Q1", "1", "1", "5")},
			column: "student_id",
			bad:    []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewValidator().Validate(fullHeader, tt.rows)
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %T: %v", err, err)
			assert.Equal(t, tt.column, vErr.Column)
			assert.Equal(t, tt.bad, vErr.Rows)
		})
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	r := row("S1", "Q1", "8", "8", "10")
	rows := []model.Row{r}
	header := []string{"student_id", "question_id", "ta_score", "llm_score", "max_points"}

	_, err := NewValidator().Validate(header, rows)
	require.NoError(t, err)

	_, hasConfidence := r["confidence"]
	assert.False(t, hasConfidence)
	assert.Len(t, r, 5)
}

func TestValidationError_TruncatesRowList(t *testing.T) {
	rows := make([]int, 15)
	for i := range rows {
		rows[i] = i
	}
	err := &ValidationError{Column: "max_points", Rows: rows, Reason: "must be greater than 0"}
	assert.Contains(t, err.Error(), "(and 5 more)")
}
