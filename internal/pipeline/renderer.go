package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/llm"
	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/report"
)

// Outputs selects which artifacts Render writes
type Outputs struct {
	Analysis    bool
	ReviewQueue bool
	Report      bool
	Metrics     bool
}

// AllOutputs writes every artifact
func AllOutputs() Outputs {
	return Outputs{Analysis: true, ReviewQueue: true, Report: true, Metrics: true}
}

// Artifact is one rendered export held in memory
type Artifact struct {
	Kind        report.Kind
	Name        string
	ContentType string
	Data        []byte
}

// Renderer turns analysis results into export files
type Renderer struct {
	dir    string
	csv    report.CSVOptions
	md     report.MarkdownOptions
	now    func() time.Time
	logger zerolog.Logger
}

// NewRenderer creates a renderer from output configuration
func NewRenderer(cfg model.OutputConfig, rule flagging.Rule, logger zerolog.Logger) *Renderer {
	return &Renderer{
		dir: cfg.Dir,
		csv: report.CSVOptions{Delimiter: report.DelimiterFor(cfg.Delimiter)},
		md: report.MarkdownOptions{
			Title:         cfg.ReportTitle,
			Rule:          rule,
			Findings:      cfg.Findings,
			IncludeFooter: cfg.IncludeFooter,
		},
		now:    time.Now,
		logger: logger.With().Str("component", "renderer").Logger(),
	}
}

// WithDir returns a copy writing into dir
func (r *Renderer) WithDir(dir string) *Renderer {
	cp := *r
	cp.dir = dir
	return &cp
}

// WithOriginalOnly returns a copy whose tables omit derived columns
func (r *Renderer) WithOriginalOnly(originalOnly bool) *Renderer {
	cp := *r
	cp.csv.OriginalOnly = originalOnly
	return &cp
}

// Now returns the renderer clock's current time
func (r *Renderer) Now() time.Time {
	return r.now()
}

// Artifact renders one export of result stamped with at. Report and
// metrics carry the same timestamp as the file name, always in UTC.
func (r *Renderer) Artifact(kind report.Kind, at time.Time, result *AnalysisResult) (Artifact, error) {
	at = at.UTC()
	snap := result.Snapshot
	snap.GeneratedAt = at

	md := r.md
	if result.Title != "" {
		md.Title = result.Title
	}

	var buf bytes.Buffer
	art := Artifact{Kind: kind, Name: report.FileName(kind, at, kind.DefaultExt(r.csv.Delimiter))}

	switch kind {
	case report.KindAnalysis:
		art.ContentType = r.tableContentType()
		if err := report.WriteCSV(&buf, result.View, r.csv); err != nil {
			return Artifact{}, fmt.Errorf("render %s: %w", kind, err)
		}
	case report.KindReviewQueue:
		art.ContentType = r.tableContentType()
		if err := report.WriteReviewQueue(&buf, result.Queue, r.csv); err != nil {
			return Artifact{}, fmt.Errorf("render %s: %w", kind, err)
		}
	case report.KindReport:
		art.ContentType = "text/markdown; charset=utf-8"
		buf.WriteString(report.Markdown(snap, md))
	case report.KindMetrics:
		art.ContentType = "application/json"
		data, err := report.JSON(snap)
		if err != nil {
			return Artifact{}, fmt.Errorf("render %s: %w", kind, err)
		}
		buf.Write(data)
	default:
		return Artifact{}, fmt.Errorf("unknown export kind %q", kind)
	}

	art.Data = buf.Bytes()
	return art, nil
}

func (r *Renderer) tableContentType() string {
	if r.csv.Delimiter == '\t' {
		return "text/tab-separated-values; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Render writes the selected artifacts into the output directory and
// returns the written paths. All files of one call share a timestamp.
func (r *Renderer) Render(result *AnalysisResult, outputs Outputs) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	at := r.now()
	var kinds []report.Kind
	if outputs.Analysis {
		kinds = append(kinds, report.KindAnalysis)
	}
	if outputs.ReviewQueue {
		kinds = append(kinds, report.KindReviewQueue)
	}
	if outputs.Report {
		kinds = append(kinds, report.KindReport)
	}
	if outputs.Metrics {
		kinds = append(kinds, report.KindMetrics)
	}

	var written []string
	for _, kind := range kinds {
		art, err := r.Artifact(kind, at, result)
		if err != nil {
			return written, err
		}
		path := filepath.Join(r.dir, art.Name)
		if err := writeAtomic(path, art.Data); err != nil {
			return written, fmt.Errorf("write %s: %w", art.Name, err)
		}
		r.logger.Debug().Str("path", path).Int("bytes", len(art.Data)).Msg("wrote export")
		written = append(written, path)

		if kind == report.KindReport && result.LLM != nil && result.LLM.Enabled {
			llmPath := strings.TrimSuffix(path, ".md") + ".llm.md"
			if err := writeAtomic(llmPath, []byte(llm.RenderSeparateMarkdown(result.LLM))); err != nil {
				r.logger.Warn().Err(err).Str("path", llmPath).Msg("failed to write LLM summary")
			} else {
				written = append(written, llmPath)
			}
		}
	}
	return written, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never see a partial export.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
