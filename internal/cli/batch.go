package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/gradelens/internal/pipeline"
	"github.com/ppiankov/gradelens/internal/worker"
)

var (
	batchFilter       filterFlags
	batchOutput       outputFlags
	batchList         string
	batchConcurrency  int
	batchTimeout      time.Duration
	batchRate         float64
	batchBurst        int
	batchFailOnErrors bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file|url...]",
	Short: "Analyze many grading tables in parallel",
	Long: `Batch analyzes several grading tables concurrently:
- Sources come from arguments or a list file (one per line, # comments)
- Every source is validated, flagged and scored with the same filter
- Each source gets its own export folder under the output directory
- Remote sources are rate limited per host

Example:
  gradelens batch week1.csv week2.csv week3.csv
  gradelens batch --list sources.txt --concurrency 8 -o ./reports
  gradelens batch *.csv --flagged-only --report`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFilter.register(batchCmd.Flags())
	batchOutput.register(batchCmd.Flags(), "./gradelens-reports")
	batchCmd.Flags().StringVar(&batchList, "list", "", "file listing sources, one per line")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&batchRate, "rate", 2, "requests per second per remote host (0 = unlimited)")
	batchCmd.Flags().IntVar(&batchBurst, "burst", 2, "burst size per remote host")
	batchCmd.Flags().BoolVar(&batchFailOnErrors, "fail-on-error", false, "exit non-zero when any source fails")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := configFor(cmd, &batchOutput)
	if err != nil {
		return err
	}
	if batchConcurrency > 0 {
		cfg.Batch.Concurrency = batchConcurrency
	}

	switch {
	case batchList != "" && len(args) > 0:
		return fmt.Errorf("pass sources as arguments or with --list, not both")
	case batchList == "" && len(args) == 0:
		return fmt.Errorf("no sources given (pass files or --list)")
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  GradeLens Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	if batchList != "" {
		fmt.Fprintf(os.Stderr, "  Source list:  %s\n", batchList)
	} else {
		fmt.Fprintf(os.Stderr, "  Sources:      %d\n", len(args))
	}
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Batch.Concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	p := pipeline.NewPipeline(cfg, logger)
	processor := worker.NewBatchProcessor(p, cfg.Batch.Concurrency, batchRate, batchBurst)
	spec := batchFilter.spec(cmd.Flags())

	var results []*worker.AnalyzeResult
	if batchList != "" {
		results, err = processor.ProcessFile(ctx, batchList, spec)
		if err != nil {
			return err
		}
	} else {
		results = processor.ProcessSources(ctx, args, spec)
	}

	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	renderer := p.Renderer().WithOriginalOnly(batchOutput.originalOnly)
	dirs := make(map[string]int)
	renderFailures := 0

	for _, result := range results {
		if result.Error != nil {
			fail.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		name := sanitizeFilename(result.Source)
		dirs[name]++
		if n := dirs[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}

		written, err := renderer.WithDir(filepath.Join(cfg.Output.Dir, name)).Render(result.Result, batchOutput.outputs())
		if err != nil {
			renderFailures++
			fail.Fprintf(os.Stderr, "✗ %s: failed to write exports: %v\n", result.Source, err)
			continue
		}

		snap := result.Result.Snapshot
		ok.Fprintf(os.Stderr, "✓ %s", result.Source)
		fmt.Fprintf(os.Stderr, " (%d records, %d flagged, MAE %s) -> %d files\n",
			snap.TotalItems, snap.FlagCount, snap.MAE.Format(2), len(written))
	}

	summary := worker.Summarize(results)
	summary.Failed += renderFailures
	summary.Succeeded -= renderFailures

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d sources\n", summary.Total)
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", summary.Succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Records:   %d (%d flagged)\n", summary.Records, summary.Flagged)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if batchFailOnErrors && summary.Failed > 0 {
		return fmt.Errorf("%d of %d sources failed", summary.Failed, summary.Total)
	}
	return nil
}
