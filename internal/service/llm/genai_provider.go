package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIProvider implements Provider using Google's Gemini API.
type GenAIProvider struct {
	client *genai.Client
	model  string
}

// NewGenAIProvider creates a Gemini-backed generative-text provider.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIProvider{client: client, model: model}, nil
}

// IsAvailable returns whether the provider has a usable client.
func (p *GenAIProvider) IsAvailable() bool {
	return p.client != nil
}

// Complete sends the prompt to the Gemini API and returns the raw text of
// the first candidate.
func (p *GenAIProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(options.Temperature)),
		MaxOutputTokens: int32(options.MaxTokens),
	}
	if options.Format == "json" {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := p.client.Models.GenerateContent(ctx,
		p.model,
		genai.Text(prompt),
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("GenAI completion failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("GenAI returned an empty completion")
	}
	return text, nil
}
