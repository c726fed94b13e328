package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/pipeline"
)

// Analyzer defines the interface for analysing one dataset source
type Analyzer interface {
	Analyze(ctx context.Context, source string, spec model.FilterSpec) (*pipeline.AnalysisResult, error)
}

// AnalyzeJob represents one dataset analysis
type AnalyzeJob struct {
	Index    int
	Source   string
	Spec     model.FilterSpec
	Analyzer Analyzer
	Limiter  *Limiter // nil disables limiting
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	res := &AnalyzeResult{Index: j.Index, Source: j.Source}

	if j.Limiter != nil {
		key, err := SourceKey(j.Source)
		if err != nil {
			res.Error = err
			return res
		}
		if key != "" {
			if err := j.Limiter.Wait(ctx, key); err != nil {
				res.Error = err
				return res
			}
		}
	}

	res.Result, res.Error = j.Analyzer.Analyze(ctx, j.Source, j.Spec)
	if res.Error != nil {
		res.Result = nil
	}
	return res
}

// AnalyzeResult represents the result of an analysis job
type AnalyzeResult struct {
	Index  int
	Source string
	Result *pipeline.AnalysisResult
	Error  error
}

// GetError returns the error from the analysis result
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses multiple sources concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. Remote sources are
// limited per host to requestsPerSecond; zero disables limiting.
func NewBatchProcessor(analyzer Analyzer, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		limiter:     NewLimiter(requestsPerSecond, burst),
	}
}

// ProcessSources analyses sources concurrently with the same filter.
// Results come back in input order.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string, spec model.FilterSpec) []*AnalyzeResult {
	if len(sources) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for i, source := range sources {
		pool.Submit(&AnalyzeJob{
			Index:    i,
			Source:   source,
			Spec:     spec,
			Analyzer: b.analyzer,
			Limiter:  b.limiter,
		})
	}

	results := pool.Wait()

	out := make([]*AnalyzeResult, 0, len(sources))
	for _, result := range results {
		out = append(out, result.(*AnalyzeResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	// jobs dropped by cancellation still get a result
	if len(out) < len(sources) {
		done := make(map[int]bool, len(out))
		for _, r := range out {
			done[r.Index] = true
		}
		for i, source := range sources {
			if !done[i] {
				out = append(out, &AnalyzeResult{Index: i, Source: source, Error: ctxErr(ctx)})
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	}

	return out
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

// ProcessFile reads sources from a list file and analyses them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, spec model.FilterSpec) ([]*AnalyzeResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources, spec), nil
}

// ReadSourcesFromFile reads dataset paths or URLs from a file (one per
// line). Relative paths are resolved against the list file's directory.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)
	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !pipeline.IsRemote(line) && !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Records   int
	Flagged   int
}

// Summarize counts successes, failures and flagged records across results
func Summarize(results []*AnalyzeResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Error != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Records += r.Result.View.Len()
		s.Flagged += r.Result.Snapshot.FlagCount
	}
	return s
}
