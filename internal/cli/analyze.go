package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gradelens/internal/pipeline"
	"github.com/ppiankov/gradelens/internal/report"
)

var (
	analyzeFilter  filterFlags
	analyzeOutput  outputFlags
	analyzeTimeout time.Duration
	analyzeNoWrite bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Analyze one grading table and write exports",
	Long: `Analyze validates a grading table (CSV, TSV or JSON), flags records that
need human review, computes agreement metrics for the filtered view and
writes timestamped exports.

Required columns: student_id, question_id, ta_score, llm_score, max_points.
Optional columns: confidence (default 1.0), flags (default false).

Example:
  gradelens analyze grades.csv
  gradelens analyze grades.csv --question Q1,Q2 --flagged-only --report
  gradelens analyze https://example.com/export.csv --json -o ./out
  gradelens analyze grades.tsv --order mae_desc --llm`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeFilter.register(analyzeCmd.Flags())
	analyzeOutput.register(analyzeCmd.Flags(), "./gradelens-reports")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall timeout (remote fetch and LLM narrative)")
	analyzeCmd.Flags().BoolVar(&analyzeNoWrite, "no-write", false, "print the summary only")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	cfg, err := configFor(cmd, &analyzeOutput)
	if err != nil {
		return err
	}
	spec := analyzeFilter.spec(cmd.Flags())

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Output dir: %s\n", cfg.Output.Dir)
		if !spec.IsZero() {
			fmt.Fprintf(os.Stderr, "Filter: %+v\n", spec)
		}
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, logger)
	result, err := p.Analyze(ctx, source, spec)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	report.PrintSummary(cmd.OutOrStdout(), source, result.Snapshot)

	if analyzeNoWrite {
		return nil
	}

	renderer := p.Renderer().WithOriginalOnly(analyzeOutput.originalOnly)
	written, err := renderer.Render(result, analyzeOutput.outputs())
	printWritten(written)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
