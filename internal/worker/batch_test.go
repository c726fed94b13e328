package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/pipeline"
)

// MockAnalyzer implements Analyzer
type MockAnalyzer struct {
	FailOn string
	calls  int32
}

func (m *MockAnalyzer) Analyze(ctx context.Context, source string, spec model.FilterSpec) (*pipeline.AnalysisResult, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.FailOn != "" && strings.Contains(source, m.FailOn) {
		return nil, errors.New("analyze error")
	}
	view := model.Dataset{Records: []model.GradingRecord{{StudentID: "S1", QuestionID: "Q1"}}}
	return &pipeline.AnalysisResult{
		Source:   source,
		Filter:   spec,
		View:     view,
		Snapshot: model.Snapshot{TotalItems: 1, FlagCount: 1},
	}, nil
}

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessSources(t *testing.T) {
	analyzer := &MockAnalyzer{}
	processor := NewBatchProcessor(analyzer, 2, 0, 0)

	sources := []string{"a.csv", "b.csv", "c.csv", "d.csv", "e.csv"}
	spec := model.FilterSpec{FlaggedOnly: true}

	results := processor.ProcessSources(context.Background(), sources, spec)

	if len(results) != len(sources) {
		t.Fatalf("expected %d results, got %d", len(sources), len(results))
	}
	for i, res := range results {
		if res.Source != sources[i] {
			t.Errorf("result %d: expected source %s, got %s", i, sources[i], res.Source)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Source, res.Error)
		}
		if res.Result == nil || !res.Result.Filter.FlaggedOnly {
			t.Errorf("expected result carrying the filter for %s", res.Source)
		}
	}
}

func TestBatchProcessor_ProcessSources_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockAnalyzer{FailOn: "bad"}, 2, 0, 0)

	results := processor.ProcessSources(context.Background(), []string{"good.csv", "bad.csv"}, model.FilterSpec{})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("expected success for good.csv, got %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for bad.csv, got nil")
	}
	if results[1].Result != nil {
		t.Error("expected nil result on error")
	}

	summary := Summarize(results)
	if summary.Total != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.Records != 1 || summary.Flagged != 1 {
		t.Errorf("unexpected record counts %+v", summary)
	}
}

func TestBatchProcessor_ProcessSources_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockAnalyzer{}, 2, 0, 0)

	results := processor.ProcessSources(context.Background(), []string{}, model.FilterSpec{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessSources_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&MockAnalyzer{}, 1, 0, 0)
	results := processor.ProcessSources(ctx, []string{"a.csv", "b.csv", "c.csv"}, model.FilterSpec{})

	if len(results) != 3 {
		t.Fatalf("expected a result per source, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected index %d, got %d", i, res.Index)
		}
	}
}

func TestAnalyzeJob_RateLimitedRemote(t *testing.T) {
	limiter := NewLimiter(1000, 1)
	job := &AnalyzeJob{Source: "https://example.com/grades.csv", Analyzer: &MockAnalyzer{}, Limiter: limiter}

	res := job.Execute(context.Background())
	if res.GetError() != nil {
		t.Fatalf("unexpected error: %v", res.GetError())
	}
	if limiter.Len() != 1 {
		t.Errorf("expected one host bucket, got %d", limiter.Len())
	}

	local := &AnalyzeJob{Source: "grades.csv", Analyzer: &MockAnalyzer{}, Limiter: limiter}
	local.Execute(context.Background())
	if limiter.Len() != 1 {
		t.Errorf("local sources must not be limited, got %d buckets", limiter.Len())
	}
}

func TestReadSourcesFromFile(t *testing.T) {
	content := `grades.csv
# comment
https://example.com/export.csv
   
/abs/other.tsv   `
	path := writeList(t, content)

	sources, err := ReadSourcesFromFile(path)
	if err != nil {
		t.Fatalf("ReadSourcesFromFile failed: %v", err)
	}

	expected := []string{
		filepath.Join(filepath.Dir(path), "grades.csv"),
		"https://example.com/export.csv",
		"/abs/other.tsv",
	}
	if len(sources) != len(expected) {
		t.Fatalf("expected %d sources, got %d", len(expected), len(sources))
	}
	for i, source := range sources {
		if source != expected[i] {
			t.Errorf("expected source %s at index %d, got %s", expected[i], i, source)
		}
	}
}

func TestReadSourcesFromFile_Deduplication(t *testing.T) {
	sources, err := ReadSourcesFromFile(writeList(t, "a.csv\na.csv\n./a.csv\n"))
	if err != nil {
		t.Fatalf("ReadSourcesFromFile failed: %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("expected 1 source after deduplication, got %d", len(sources))
	}
}

func TestReadSourcesFromFile_NonExistent(t *testing.T) {
	_, err := ReadSourcesFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	analyzer := &MockAnalyzer{}
	processor := NewBatchProcessor(analyzer, 2, 0, 0)

	results, err := processor.ProcessFile(context.Background(), writeList(t, "a.csv\nb.csv\n# comment\n\nc.csv\n"), model.FilterSpec{})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
	if atomic.LoadInt32(&analyzer.calls) != 3 {
		t.Errorf("expected 3 analyzer calls, got %d", analyzer.calls)
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockAnalyzer{}, 2, 0, 0)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt", model.FilterSpec{})
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestAnalyzeResult_GetError(t *testing.T) {
	r1 := &AnalyzeResult{Source: "a.csv"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("analysis failed")
	r2 := &AnalyzeResult{Source: "a.csv", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
