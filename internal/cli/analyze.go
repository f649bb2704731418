package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/pipeline"
)

var (
	inputFile      string
	outJSON        string
	outMD          string
	samples        int
	seed           int64
	timeout        time.Duration
	noCache        bool
	strictLanguage bool
	llmEnabled     bool
	llmProvider    string
	llmModel       string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Classify a news text and explain the prediction",
	Long: `Analyze scores one news text and explains the score:
- Reject empty and non-English input
- Compute the calibrated probability that the text is fake
- Perturb the words and the linguistic features
- Fit local linear surrogates and rank the contributions

The text comes from the arguments, --file, or stdin.

Example:
  taieye analyze "BREAKING!!! You WON'T believe what happened!!!"
  taieye analyze --file article.txt --json report.json --md report.md
  taieye analyze --file article.txt --samples 200 --seed 7
  taieye analyze --file article.txt --llm --llm-provider ollama --llm-model llama3.1`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input and output flags
	analyzeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read the text from a file")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	// Explanation flags
	analyzeCmd.Flags().IntVar(&samples, "samples", 0, "perturbations per explanation (25-500; default from config)")
	analyzeCmd.Flags().Int64Var(&seed, "seed", 0, "sampling seed (default from config)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	analyzeCmd.Flags().BoolVar(&strictLanguage, "strict-language", false, "reject text whose language cannot be determined")

	// LLM flags
	analyzeCmd.Flags().BoolVar(&llmEnabled, "llm", false, "attach an LLM narrative of the explanation")
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, ollama); default from config")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")

	_ = viper.BindPFlag("language.strict", analyzeCmd.Flags().Lookup("strict-language"))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readText(args, inputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if llmEnabled {
		if llmProvider != "" {
			cfg.LLM.Provider = llmProvider
		}
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}
		if cfg.LLM.Provider == "" {
			return fmt.Errorf("--llm needs a provider: set --llm-provider or llm.provider in the config")
		}
		if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	analyzer, err := pipeline.NewAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	req := pipeline.Request{Text: text, Samples: samples, Narrate: llmEnabled}
	if cmd.Flags().Changed("seed") {
		req.Seed = &seed
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d characters...\n", len(text))
	}

	report, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed (%s): %w", model.ReasonOf(err), err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Scored %d word and %d feature perturbations\n",
			report.WordExplanation.Samples, report.FeatureExplanation.Samples)
		if report.Narrative != nil && report.Narrative.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated narrative using %s/%s\n", report.Narrative.Provider, report.Narrative.Model)
		}
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	if err := renderer.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
