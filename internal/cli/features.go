package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/pipeline"
)

var featuresJSON bool

// featuresCmd prints the linguistic features of a text
var featuresCmd = &cobra.Command{
	Use:   "features [text]",
	Short: "Extract the linguistic features of a text",
	Long: `Features runs the language guard and the feature extractor only.
It needs no model artifacts.

Example:
  taieye features "The committee discussed the budget on Tuesday."
  taieye features --file article.txt --json`,
	RunE: runFeatures,
}

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read the text from a file")
	featuresCmd.Flags().BoolVar(&featuresJSON, "json", false, "print JSON instead of a table")
}

func runFeatures(cmd *cobra.Command, args []string) error {
	text, err := readText(args, inputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	analyzer, err := pipeline.NewAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	fr, err := analyzer.AnalyzeFeatures(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("feature extraction failed (%s): %w", model.ReasonOf(err), err)
	}

	if featuresJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(fr)
	}
	pipeline.NewRenderer(cmd.OutOrStdout()).RenderFeatures(fr)
	return nil
}
