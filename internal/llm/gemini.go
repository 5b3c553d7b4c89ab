package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// geminiClient implements the Client interface for the Gemini API.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// newGeminiClient creates a Gemini API client.
func newGeminiClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return &geminiClient{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// MatchBatch sends one batch to the Gemini API.
func (c *geminiClient) MatchBatch(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	model := c.client.GenerativeModel(c.model)
	temperature := float32(temperatureFor(c.temperature, req.Mode))
	maxTokens := int32(c.maxTokens)
	model.Temperature = &temperature
	model.MaxOutputTokens = &maxTokens

	// Gemini has no separate system role here, so the instructions lead
	// the prompt.
	prompt := systemPrompt() + "\n\n" + userPrompt(req)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return BatchResponse{}, fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return BatchResponse{}, fmt.Errorf("no response from Gemini API")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return parseBatchResponse(sb.String(), req)
}

// Close releases the underlying API connection.
func (c *geminiClient) Close() error {
	return c.client.Close()
}
