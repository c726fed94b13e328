package ingest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gradelens/internal/model"
)

func TestRead_CSV(t *testing.T) {
	in := "\xEF\xBB\xBFstudent_id, question_id,ta_score,llm_score,max_points\n" +
		"S1,Q1,8,8,10\n" +
		"\n" +
		"S2,Q1, 5 ,9,10\n"

	header, rows, err := Read(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "question_id", "ta_score", "llm_score", "max_points"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "S2", rows[1]["student_id"])
	assert.Equal(t, "5", rows[1]["ta_score"])
}

func TestRead_TSV(t *testing.T) {
	in := "student_id\tquestion_id\tta_score\tllm_score\tmax_points\nS1\tQ1\t8\t7.5\t10\n"
	_, rows, err := Read(strings.NewReader(in), FormatTSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7.5", rows[0]["llm_score"])
}

func TestRead_CSVHeaderOnly(t *testing.T) {
	header, rows, err := Read(strings.NewReader("student_id,question_id\n"), FormatCSV)
	require.NoError(t, err)
	assert.Len(t, header, 2)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRead_FormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"empty csv", "", FormatCSV},
		{"ragged csv", "a,b\n1,2,3\n", FormatCSV},
		{"bad quote", "a,b\n\"1,2\n", FormatCSV},
		{"empty json", "  ", FormatJSON},
		{"json scalar", "42", FormatJSON},
		{"json object without records", `{"rows": []}`, FormatJSON},
		{"json array of scalars", `[1, 2]`, FormatJSON},
		{"unknown format", "x", Format("xlsx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(strings.NewReader(tt.input), tt.format)
			var ffe *FileFormatError
			require.True(t, errors.As(err, &ffe), "got %v", err)
			assert.Equal(t, tt.format, ffe.Format)
		})
	}
}

func TestRead_JSON(t *testing.T) {
	arr := `[{"student_id":"S1","question_id":"Q1","ta_score":8,"llm_score":7.5,"max_points":10,"flags":true}]`
	header, rows, err := Read(strings.NewReader(arr), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "question_id", "ta_score", "llm_score", "max_points", "flags"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, json.Number("7.5"), rows[0]["llm_score"])
	assert.Equal(t, true, rows[0]["flags"])

	wrapped := `{"records":` + arr + `}`
	_, rows, err = Read(strings.NewReader(wrapped), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRead_JSONHeaderKeepsKeyOrder(t *testing.T) {
	in := `[{"question_id":"Q1","student_id":"S1","ta_score":1},{"student_id":"S2","confidence":0.5,"question_id":"Q2"}]`
	header, rows, err := Read(strings.NewReader(in), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"question_id", "student_id", "ta_score", "confidence"}, header)
	assert.Len(t, rows, 2)
}

func TestRead_JSONEmptyArray(t *testing.T) {
	for _, in := range []string{`[]`, `{"records": []}`} {
		header, rows, err := Read(strings.NewReader(in), FormatJSON)
		require.NoError(t, err, in)
		assert.Nil(t, header, in)
		assert.NotNil(t, rows, in)
		assert.Empty(t, rows, in)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grades.tsv")
	require.NoError(t, os.WriteFile(path, []byte("student_id\tquestion_id\nS1\tQ1\n"), 0o644))

	header, rows, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{model.ColStudentID, model.ColQuestionID}, header)
	assert.Len(t, rows, 1)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("a,b\n1\n"), 0o644))
	_, _, err = LoadFile(bad)
	var ffe *FileFormatError
	require.ErrorAs(t, err, &ffe)
	assert.Equal(t, bad, ffe.Source)
	assert.Contains(t, err.Error(), bad)

	_, _, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetectAndParseFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("a.CSV"))
	assert.Equal(t, FormatTSV, DetectFormat("a.tsv"))
	assert.Equal(t, FormatJSON, DetectFormat("a.json"))
	assert.Equal(t, FormatCSV, DetectFormat("a.txt"))

	f, ok := ParseFormat("application/json; charset=utf-8")
	assert.True(t, ok)
	assert.Equal(t, FormatJSON, f)
	_, ok = ParseFormat("application/xml")
	assert.False(t, ok)
}
