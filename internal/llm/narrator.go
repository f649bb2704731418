package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/metrics"
	"github.com/ppiankov/taieye/internal/model"
)

// Narrator attaches an optional narrative to reports. Failures never
// fail the analysis; they surface as warnings on the narrative.
type Narrator struct {
	provider Provider
	config   Config
}

// NewNarrator creates a narrator; an empty provider disables it
func NewNarrator(config Config, logger *zap.Logger) (*Narrator, error) {
	provider, err := NewProvider(config, logger)
	if err != nil {
		return nil, err
	}
	return &Narrator{provider: provider, config: config}, nil
}

// NewNarratorWithProvider wraps an existing provider
func NewNarratorWithProvider(provider Provider, config Config) *Narrator {
	return &Narrator{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (n *Narrator) IsEnabled() bool {
	return n != nil && n.provider != nil
}

// ProviderName returns the configured provider or ""
func (n *Narrator) ProviderName() string {
	if !n.IsEnabled() {
		return ""
	}
	return n.provider.Name()
}

// Generate narrates report. It returns nil when disabled.
func (n *Narrator) Generate(ctx context.Context, report model.Report) (*model.Narrative, error) {
	if !n.IsEnabled() {
		return nil, nil
	}

	name := n.provider.Name()
	narrative := &model.Narrative{
		Enabled:  true,
		Provider: name,
		Model:    n.config.Model,
		Strict:   n.config.Strict,
	}

	if !n.provider.IsAvailable(ctx) {
		metrics.NarrativeTotal.WithLabelValues(name, "unavailable").Inc()
		narrative.Enabled = false
		narrative.Warnings = append(narrative.Warnings,
			fmt.Sprintf("LLM provider %s is not available; narrative skipped", name))
		return narrative, nil
	}

	allowed := AllowedTerms(report)
	resp, err := n.provider.Narrate(ctx, NarrateRequest{
		Report:       report,
		AllowedTerms: allowed,
		Model:        n.config.Model,
		MaxTokens:    n.config.MaxTokens,
	})
	if err != nil {
		metrics.NarrativeTotal.WithLabelValues(name, "failed").Inc()
		narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Narrative generation failed: %v", err))
		return narrative, nil
	}

	metrics.NarrativeTotal.WithLabelValues(name, "ok").Inc()
	narrative.Text = resp.Text
	if resp.Model != "" {
		narrative.Model = resp.Model
	}
	narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if n.config.Strict {
		narrative.Warnings = append(narrative.Warnings,
			fmt.Sprintf("Verified %d quoted terms against the explanation", len(resp.CitedTerms)))
	}
	return narrative, nil
}

// RenderNarrativeMarkdown renders a narrative as a standalone document
func RenderNarrativeMarkdown(n *model.Narrative) string {
	if n == nil || !n.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Narrative\n\n")
	b.WriteString("> GENERATED CONTENT. The probability and contributions were determined independently of the language model.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", n.Provider)
	if n.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", n.Model)
	}
	fmt.Fprintf(&b, "- **Strict Terms Mode**: %t\n\n", n.Strict)

	if n.Text == "" {
		b.WriteString("_No narrative generated._\n")
	} else {
		b.WriteString(n.Text)
		b.WriteString("\n")
	}

	if len(n.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range n.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
