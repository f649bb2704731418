package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/taieye/internal/llm"
	"github.com/ppiankov/taieye/internal/model"
)

// Renderer writes reports as JSON, Markdown and console summaries
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(Markdown(report)))
}

// RenderLLMMarkdown writes an already rendered narrative document
func (r *Renderer) RenderLLMMarkdown(markdown string, path string) error {
	return writeFile(path, []byte(markdown))
}

// RenderReport renders the report to the requested outputs and prints the summary
func (r *Renderer) RenderReport(report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	// Narrative goes to its own file so it is never mistaken for the analysis
	if report.Narrative != nil && report.Narrative.Enabled && mdPath != "" {
		narrativePath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
		if err := r.RenderLLMMarkdown(llm.RenderNarrativeMarkdown(report.Narrative), narrativePath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to write narrative: %v\n", err)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Narrative: %s\n", narrativePath)
		}
	}

	r.RenderSummary(report)
	return nil
}

// RenderSummary prints a short human-readable result
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Fprintf(r.out, "\nVerdict: %s (probability of fake %.1f%%, threshold %.2f)\n",
		strings.ToUpper(string(report.Label)), report.Probability*100, report.Threshold)
	fmt.Fprintf(r.out, "Words: %d  Language: %s", report.WordCount, report.Language.Verdict)
	if report.Language.Language != "" {
		fmt.Fprintf(r.out, " (%s)", report.Language.Language)
	}
	fmt.Fprintln(r.out)

	if len(report.WordContributions) > 0 {
		fmt.Fprintf(r.out, "\nTop words%s:\n", shownOf(len(report.WordContributions), report.WordExplanation.Units))
		for i, c := range report.WordContributions {
			if i >= 5 {
				break
			}
			fmt.Fprintf(r.out, "  %-24s %+.4f  → %s\n", c.Unit, c.Weight, c.Direction())
		}
	}

	if len(report.FeatureContributions) > 0 {
		fmt.Fprintln(r.out, "\nTop features:")
		for i, c := range report.FeatureContributions {
			if i >= 5 {
				break
			}
			fmt.Fprintf(r.out, "  %-36s %+.4f  → %s\n", c.Unit, c.Weight, c.Direction())
		}
	}

	if report.Cached {
		fmt.Fprintln(r.out, "\n(served from cache)")
	}
	if report.Narrative != nil && report.Narrative.Text != "" {
		fmt.Fprintf(r.out, "\nNarrative (%s):\n%s\n", report.Narrative.Provider, report.Narrative.Text)
	}
}

// RenderFeatures prints the feature-only result
func (r *Renderer) RenderFeatures(fr *model.FeatureReport) {
	fmt.Fprintf(r.out, "Words: %d  Language: %s\n\n", fr.WordCount, fr.Language.Verdict)
	names := fr.Features.Names()
	values := fr.Features.Values()
	for i, name := range names {
		fmt.Fprintf(r.out, "  %-36s %10.4f\n", name, values[i])
	}
}

// Markdown renders the report as a Markdown document
func Markdown(report *model.Report) string {
	var b strings.Builder

	b.WriteString("# Fake News Analysis\n\n")
	fmt.Fprintf(&b, "- **Classification ID**: %s\n", report.ID)
	fmt.Fprintf(&b, "- **Created**: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Verdict**: %s\n", report.Label)
	fmt.Fprintf(&b, "- **Probability of fake**: %.4f (threshold %.2f)\n", report.Probability, report.Threshold)
	fmt.Fprintf(&b, "- **Language**: %s", report.Language.Verdict)
	if report.Language.Reason != "" {
		fmt.Fprintf(&b, " (%s)", report.Language.Reason)
	}
	b.WriteString("\n\n")

	b.WriteString("> The probability is a model estimate based on wording and style. It does not check facts.\n\n")

	b.WriteString("## Word Contributions\n\n")
	if len(report.WordContributions) == 0 {
		b.WriteString("_None._\n")
	} else {
		b.WriteString("| Word | Weight | Pushes toward |\n|---|---:|---|\n")
		for _, c := range report.WordContributions {
			fmt.Fprintf(&b, "| `%s` | %+.4f | %s |\n", escapeCell(c.Unit), c.Weight, c.Direction())
		}
		if shown, total := len(report.WordContributions), report.WordExplanation.Units; shown < total {
			fmt.Fprintf(&b, "\n_Top %d of %d words by absolute weight. The other words were modeled with smaller weights._\n", shown, total)
		}
	}
	writeFit(&b, report.WordExplanation)

	b.WriteString("\n## Feature Contributions\n\n")
	if len(report.FeatureContributions) == 0 {
		b.WriteString("_None._\n")
	} else {
		b.WriteString("| Feature | Weight | Pushes toward | Meaning |\n|---|---:|---|---|\n")
		for _, c := range report.FeatureContributions {
			fmt.Fprintf(&b, "| `%s` | %+.4f | %s | %s |\n",
				c.Unit, c.Weight, c.Direction(), model.FeatureName(c.Unit).Explanation())
		}
	}
	writeFit(&b, report.FeatureExplanation)

	b.WriteString("\n## Artifacts\n\n")
	fmt.Fprintf(&b, "- Embedding: %s\n", report.Artifacts.Embedding)
	fmt.Fprintf(&b, "- Scaler: %s\n", report.Artifacts.Scaler)
	fmt.Fprintf(&b, "- Classifier: %s\n", report.Artifacts.Classifier)

	return b.String()
}

// shownOf labels a truncated list, e.g. " (5 of 12)"
func shownOf(shown, total int) string {
	if shown >= total {
		return ""
	}
	return fmt.Sprintf(" (%d of %d)", shown, total)
}

func writeFit(b *strings.Builder, meta model.ExplanationMeta) {
	fmt.Fprintf(b, "\nSurrogate: %d samples, seed %d, intercept %.4f, local prediction %.4f, R² %.3f\n",
		meta.Samples, meta.Seed, meta.Intercept, meta.LocalPrediction, meta.Score)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
