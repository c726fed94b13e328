// Package pipeline wires loading, validation, flagging, filtering, scoring
// and rendering into single calls for the CLI, batch runs and the server.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/ingest"
	"github.com/ppiankov/gradelens/internal/llm"
	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/score"
	"github.com/ppiankov/gradelens/internal/validate"
)

// Pipeline orchestrates the complete analysis
type Pipeline struct {
	fetcher    *Fetcher
	validator  *validate.Validator
	rule       flagging.Rule
	scorer     *score.Scorer
	renderer   *Renderer
	summarizer *llm.Summarizer // nil when disabled
	config     *model.Config
	logger     zerolog.Logger
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger zerolog.Logger) *Pipeline {
	logger = logger.With().Str("component", "pipeline").Logger()
	rule := flagging.RuleFromConfig(cfg.Flagging)
	order, ok := model.ParseQuestionOrder(cfg.Output.QuestionOrder)
	if !ok {
		logger.Warn().Str("order", cfg.Output.QuestionOrder).Msg("unknown question order, using appearance")
		order = model.OrderAppearance
	}

	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize LLM provider")
		} else {
			summarizer = s
		}
	}

	return &Pipeline{
		fetcher:    NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxBytes),
		validator:  validate.NewValidator(),
		rule:       rule,
		scorer:     score.NewScorer(rule, order),
		renderer:   NewRenderer(cfg.Output, rule, logger),
		summarizer: summarizer,
		config:     cfg,
		logger:     logger,
	}
}

// Rule returns the flag rule in use
func (p *Pipeline) Rule() flagging.Rule {
	return p.rule
}

// Scorer returns the metrics scorer
func (p *Pipeline) Scorer() *score.Scorer {
	return p.scorer
}

// Renderer returns the export renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Load reads a local file or http(s) URL and returns the validated,
// flagged dataset.
func (p *Pipeline) Load(ctx context.Context, source string) (model.Dataset, error) {
	if IsRemote(source) {
		fetched, err := p.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return model.Dataset{}, fmt.Errorf("fetch %s: %w", source, err)
		}
		return p.Read(bytes.NewReader(fetched.Body), fetched.Format)
	}

	header, rows, err := ingest.LoadFile(source)
	if err != nil {
		return model.Dataset{}, err
	}
	return p.FromRows(header, rows)
}

// Read parses one table from r and returns the validated, flagged dataset.
func (p *Pipeline) Read(r io.Reader, format ingest.Format) (model.Dataset, error) {
	header, rows, err := ingest.Read(r, format)
	if err != nil {
		return model.Dataset{}, err
	}
	return p.FromRows(header, rows)
}

// FromRows validates raw rows and applies the flag rule. It is the single
// entry point shared by files, uploads and the sample generator.
func (p *Pipeline) FromRows(header []string, rows []model.Row) (model.Dataset, error) {
	ds, err := p.validator.Validate(header, rows)
	if err != nil {
		return model.Dataset{}, err
	}
	flagged := p.rule.Apply(ds)
	p.logger.Debug().Int("records", flagged.Len()).Msg("dataset validated and flagged")
	return flagged, nil
}

// NewSession wraps a flagged dataset in per-session filter state.
func (p *Pipeline) NewSession(id string, base model.Dataset) *Session {
	return NewSession(id, base, p.rule, p.scorer)
}

// AnalysisResult is one analysed view with everything needed for exports
type AnalysisResult struct {
	Source   string                `json:"source"`
	Title    string                `json:"title"`
	Filter   model.FilterSpec      `json:"filter"`
	Base     model.Dataset         `json:"-"`
	View     model.Dataset         `json:"-"`
	Snapshot model.Snapshot        `json:"snapshot"`
	Queue    []flagging.ReviewItem `json:"review_queue"`
	LLM      *model.LLMSummary     `json:"llm,omitempty"`
}

// Analyze loads source, narrows it with spec and computes metrics and the
// review queue of the resulting view.
func (p *Pipeline) Analyze(ctx context.Context, source string, spec model.FilterSpec) (*AnalysisResult, error) {
	base, err := p.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	session := p.NewSession(filepath.Base(source), base)
	if _, err := session.SetFilter(spec); err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	result := session.Result(p.config.Output.ReportTitle, "")
	result.Source = source

	p.logger.Info().
		Str("source", source).
		Int("records", base.Len()).
		Int("view", result.View.Len()).
		Int("flagged", result.Snapshot.FlagCount).
		Msg("analysis complete")

	// Narrative is generated after scoring and never affects it
	result.LLM = p.Summarize(ctx, result.Snapshot, result.Title)
	return result, nil
}

// Summarize returns the optional narrative of snap, or nil when disabled.
// Failures are logged and reported inside the summary's warnings.
func (p *Pipeline) Summarize(ctx context.Context, snap model.Snapshot, title string) *model.LLMSummary {
	if !p.summarizer.IsEnabled() {
		return nil
	}
	summary, err := p.summarizer.GenerateSummary(ctx, snap, title)
	if err != nil {
		p.logger.Warn().Err(err).Msg("LLM summary generation failed")
		return nil
	}
	if summary != nil {
		for _, w := range summary.Warnings {
			p.logger.Debug().Str("provider", summary.Provider).Msg(w)
		}
	}
	return summary
}
