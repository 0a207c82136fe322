package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type WriterOptions struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

func NewPageWriter(ctx context.Context, opts WriterOptions) (PageWriter, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, fmt.Errorf("gemini api key is required")
		}
		return NewGeminiWriter(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAIWriter(opts.APIKey, opts.Model, opts.BaseURL, opts.Timeout), nil
	case "ollama":
		return NewOllamaWriter(opts.Model, opts.BaseURL, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported page writer provider: %s", opts.Provider)
	}
}
