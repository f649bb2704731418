package llm

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/model"
)

// ErrTermLeak is returned in strict mode when a narrative quotes a term
// that is not part of the explanation
var ErrTermLeak = errors.New("narrative quoted a term outside the explanation")

// NewProvider creates a new LLM provider based on configuration.
// logger receives the provider's diagnostics and may be nil.
func NewProvider(config Config, logger *zap.Logger) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		return p.WithLogger(logger), nil

	case "ollama":
		p, err := NewOllamaProvider(config)
		if err != nil {
			return nil, err
		}
		return p.WithLogger(logger), nil

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown LLM provider: %s (supported: openai, ollama)", model.ErrInvalidParameter, config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		Strict:     modelConfig.Strict,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
		NoProxy:    modelConfig.NoProxy,
	}
}
