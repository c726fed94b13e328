package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/pipeline"
)

// filterFlags collects the view filter shared by analyze and batch
type filterFlags struct {
	questions       []string
	students        []string
	minConfidence   float64
	maxConfidence   float64
	minAbsError     float64
	minPercentError float64
	maxPercentError float64
	flaggedOnly     bool
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.questions, "question", nil, "keep only these question ids (repeatable or comma separated)")
	fs.StringSliceVar(&f.students, "student", nil, "keep only these student ids (repeatable or comma separated)")
	fs.Float64Var(&f.minConfidence, "min-confidence", 0, "minimum LLM confidence (0-1)")
	fs.Float64Var(&f.maxConfidence, "max-confidence", 1, "maximum LLM confidence (0-1)")
	fs.Float64Var(&f.minAbsError, "min-abs-error", 0, "minimum absolute score difference")
	fs.Float64Var(&f.minPercentError, "min-percent-error", 0, "minimum percent error of max points")
	fs.Float64Var(&f.maxPercentError, "max-percent-error", 100, "maximum percent error of max points")
	fs.BoolVar(&f.flaggedOnly, "flagged-only", false, "keep only flagged records")
}

// spec builds a FilterSpec from the flags the user actually set
func (f *filterFlags) spec(fs *pflag.FlagSet) model.FilterSpec {
	spec := model.FilterSpec{
		QuestionIDs: f.questions,
		StudentIDs:  f.students,
		FlaggedOnly: f.flaggedOnly,
	}
	if fs.Changed("min-confidence") {
		spec.MinConfidence = model.Float(f.minConfidence)
	}
	if fs.Changed("max-confidence") {
		spec.MaxConfidence = model.Float(f.maxConfidence)
	}
	if fs.Changed("min-abs-error") {
		spec.MinAbsError = model.Float(f.minAbsError)
	}
	if fs.Changed("min-percent-error") {
		spec.MinPercentError = model.Float(f.minPercentError)
	}
	if fs.Changed("max-percent-error") {
		spec.MaxPercentError = model.Float(f.maxPercentError)
	}
	return spec
}

// outputFlags select and shape the written exports
type outputFlags struct {
	dir          string
	csv          bool
	reviewQueue  bool
	report       bool
	json         bool
	originalOnly bool
	delimiter    string
	order        string
	title        string
	noFooter     bool
	noFindings   bool
	llm          bool
	llmModel     string
}

func (o *outputFlags) register(fs *pflag.FlagSet, defaultDir string) {
	fs.StringVarP(&o.dir, "output-dir", "o", defaultDir, "output directory for exports")
	fs.BoolVar(&o.csv, "csv", false, "write the analysis table (grading_analysis_<ts>.csv)")
	fs.BoolVar(&o.reviewQueue, "review-queue", false, "write the review queue (review_queue_<ts>.csv)")
	fs.BoolVar(&o.report, "report", false, "write the Markdown report (report_<ts>.md)")
	fs.BoolVar(&o.json, "json", false, "write the metrics snapshot (metrics_<ts>.json)")
	fs.BoolVar(&o.originalOnly, "original-only", false, "omit derived columns from tables")
	fs.StringVar(&o.delimiter, "delimiter", "", "table delimiter: comma or tab")
	fs.StringVar(&o.order, "order", "", "per-question order: appearance, id or mae_desc")
	fs.StringVar(&o.title, "title", "", "report title")
	fs.BoolVar(&o.noFooter, "no-footer", false, "disable footer in Markdown reports")
	fs.BoolVar(&o.noFindings, "no-findings", false, "omit key findings and recommendations")
	fs.BoolVar(&o.llm, "llm", false, "generate an LLM narrative next to the report (needs OPENAI_API_KEY)")
	fs.StringVar(&o.llmModel, "llm-model", "", "LLM model name")
}

// outputs returns the selected artifacts; selecting none writes all of them
func (o *outputFlags) outputs() pipeline.Outputs {
	out := pipeline.Outputs{
		Analysis:    o.csv,
		ReviewQueue: o.reviewQueue,
		Report:      o.report,
		Metrics:     o.json,
	}
	if out == (pipeline.Outputs{}) {
		return pipeline.AllOutputs()
	}
	return out
}

// apply writes the flags the user set onto cfg
func (o *outputFlags) apply(fs *pflag.FlagSet, cfg *model.Config) error {
	if fs.Changed("output-dir") || cfg.Output.Dir == "" {
		cfg.Output.Dir = o.dir
	}
	if o.delimiter != "" {
		cfg.Output.Delimiter = o.delimiter
	}
	if o.order != "" {
		if _, ok := model.ParseQuestionOrder(o.order); !ok {
			return fmt.Errorf("unknown order %q (want appearance, id or mae_desc)", o.order)
		}
		cfg.Output.QuestionOrder = o.order
	}
	if o.title != "" {
		cfg.Output.ReportTitle = o.title
	}
	if o.noFooter {
		cfg.Output.IncludeFooter = false
	}
	if o.noFindings {
		cfg.Output.Findings = false
	}

	switch {
	case o.llm:
		if cfg.LLM.Provider == "" {
			cfg.LLM.Provider = "openai"
		}
		if o.llmModel != "" {
			cfg.LLM.Model = o.llmModel
		}
		if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case fs.Changed("llm"):
		// --llm=false overrides a configured provider
		cfg.LLM.Provider = ""
	}
	return nil
}

// configFor loads configuration and applies output flags
func configFor(cmd *cobra.Command, o *outputFlags) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := o.apply(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printWritten(paths []string) {
	for _, p := range paths {
		fmt.Fprintf(os.Stderr, "  wrote %s\n", p)
	}
}

// sanitizeFilename turns a source path or URL into a directory name
func sanitizeFilename(s string) string {
	if i := strings.LastIndexAny(s, `/\`); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i]
	}

	s = strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	).Replace(s)

	if s == "" || s == "." || s == ".." {
		s = "dataset"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
