package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewClient creates a raw semantic matching client based on the provided
// configuration. Most callers want NewMatcher, which layers caching, rate
// limiting, and retries on top.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openrouter":
		return newOpenAIClient(cfg, openRouterBaseURL, defaultOpenRouterModel)
	case "openai":
		return newOpenAIClient(cfg, openAIBaseURL, defaultOpenAIModel)
	case "gemini":
		return newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported semantic matcher provider: %s", cfg.Provider)
	}
}
