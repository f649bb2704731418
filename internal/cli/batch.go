package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/pipeline"
	"github.com/ppiankov/taieye/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchRate    float64
	// noCache is defined in analyze.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many texts from a file in parallel",
	Long: `Batch analyzes multiple texts concurrently:
- Read texts from the input file (one per line, # starts a comment)
- Analyze texts in parallel with a configurable worker count
- Each analysis scores its perturbations on its own worker pool
- Write a JSON and a Markdown report per text

Example:
  taieye batch headlines.txt
  taieye batch headlines.txt --concurrency 4 --output-dir ./reports
  taieye batch headlines.txt --rate 2 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "texts analyzed in parallel (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./taieye-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&batchRate, "rate", -1, "analyses started per second, 0 for unlimited (default from config)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.BatchWorkers = concurrency
	}
	if batchRate >= 0 {
		cfg.RateLimiting.RequestsPerSecond = batchRate
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  TAIEYE Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.BatchWorkers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	analyzer, err := pipeline.NewAnalyzer(cfg, logger)
	if err != nil {
		return err
	}
	processor := worker.NewBatchProcessor(analyzer, cfg.Concurrency.BatchWorkers,
		cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	fmt.Fprintf(os.Stderr, "⚙️  Reading texts from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	summary := writeBatchReports(results, outputDir)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d texts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Fake:      %d\n", summary.fake)
	fmt.Fprintf(os.Stderr, "  Real:      %d\n", summary.real)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.failed)
	for reason, n := range summary.reasons {
		fmt.Fprintf(os.Stderr, "    %-24s %d\n", reason, n)
	}
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

type batchSummary struct {
	fake, real, failed int
	reasons            map[model.Reason]int
}

// writeBatchReports renders one JSON and one Markdown file per successful result
func writeBatchReports(results []*worker.AnalysisResult, dir string) batchSummary {
	summary := batchSummary{reasons: make(map[model.Reason]int)}
	renderer := pipeline.NewRenderer(os.Stderr)

	for _, result := range results {
		if result.Error != nil {
			summary.failed++
			summary.reasons[model.ReasonOf(result.Error)]++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ID, result.Error)
			continue
		}

		base := filepath.Join(dir, sanitizeFilename(result.ID))
		if err := renderer.RenderJSON(result.Report, base+".json"); err != nil {
			summary.failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.ID, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, base+".md"); err != nil {
			summary.failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.ID, err)
			continue
		}

		if result.Report.Label == model.LabelFake {
			summary.fake++
		} else {
			summary.real++
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %s (%.2f)\n", result.ID, result.Report.Label, result.Report.Probability)
	}
	return summary
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
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
	)
	s = replacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
