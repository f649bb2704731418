package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/taieye/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate writes a plain-language reading of an explained prediction
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// NarrateRequest contains the input for narration
type NarrateRequest struct {
	// Report is the scored and explained analysis
	Report model.Report

	// AllowedTerms is the STRICT allowlist of units the narrative may quote
	// in backticks: the explained words and feature names.
	AllowedTerms []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// NarrateResponse contains the LLM output
type NarrateResponse struct {
	// Text is the generated narrative
	Text string

	// CitedTerms are the backticked terms the narrative quoted
	CitedTerms []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Strict rejects narratives quoting terms outside the explanation
	Strict bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		Strict:    true,
		MaxTokens: 600,
	}
}

const systemPrompt = "You explain the output of a fake-news classifier in plain language, " +
	"quoting only the words and features you are given."

// BuildPrompt constructs the default narration prompt
func BuildPrompt(report model.Report, allowed []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `A classifier estimated how likely a news text is to be fake. It NEVER checks facts; it only reacts to wording and style.

CRITICAL RULES:
1. When you quote a word or feature, wrap it in backticks and use ONLY terms from this list:
%s

2. DO NOT judge whether the text is true. Describe what pushed the score, not the truth.
3. Mention that the probability is a model estimate.
4. Keep it to 3-4 sentences.

Result:
- Probability of fake: %.2f
- Label: %s (threshold %.2f)
- Words analyzed: %d
- Surrogate fit (R²): words %.2f, features %.2f

Top word contributions (positive = pushes toward fake):
`, joinTerms(allowed), report.Probability, report.Label, report.Threshold, report.WordCount,
		report.WordExplanation.Score, report.FeatureExplanation.Score)

	for i, c := range report.WordContributions {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- `%s`: %+.4f\n", c.Unit, c.Weight)
	}

	b.WriteString("\nTop feature contributions:\n")
	for i, c := range report.FeatureContributions {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- `%s`: %+.4f (%s)\n", c.Unit, c.Weight, model.FeatureName(c.Unit).Explanation())
	}

	b.WriteString("\nWrite the explanation for a non-technical reader.")
	return b.String()
}

// AllowedTerms lists every unit a narrative for report may quote
func AllowedTerms(report model.Report) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, list := range [][]model.Contribution{report.WordContributions, report.FeatureContributions} {
		for _, c := range list {
			if !seen[c.Unit] {
				seen[c.Unit] = true
				terms = append(terms, c.Unit)
			}
		}
	}
	return terms
}

func joinTerms(terms []string) string {
	if len(terms) == 0 {
		return "(No terms available)"
	}
	var b strings.Builder
	for i, term := range terms {
		if i >= 40 { // Limit to avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more terms", len(terms)-40)
			break
		}
		fmt.Fprintf(&b, "\n- %s", term)
	}
	return b.String()
}

var backticked = regexp.MustCompile("`([^`\n]+)`")

// extractTerms returns the distinct backticked terms in text
func extractTerms(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, m := range backticked.FindAllStringSubmatch(text, -1) {
		term := strings.TrimSpace(m[1])
		if term != "" && !seen[term] {
			seen[term] = true
			unique = append(unique, term)
		}
	}
	return unique
}

// verifyTerms fails on the first cited term missing from allowed
func verifyTerms(cited, allowed []string) error {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}
	for _, term := range cited {
		if !allow[term] {
			return fmt.Errorf("%w: %q", ErrTermLeak, term)
		}
	}
	return nil
}
