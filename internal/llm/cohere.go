package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"enhancer/internal/core"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereGenerator generates text with Cohere's chat endpoint.
type CohereGenerator struct {
	client *cohereclient.Client
	model  string
}

// NewCohereGenerator creates a Cohere-backed generator.
func NewCohereGenerator(apiKey, model string, timeout time.Duration) (*CohereGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: cohere API key is required. Set COHERE_API_KEY environment variable or ai.cohere.api_key in config file", core.ErrConfiguration)
	}
	if model == "" {
		model = DefaultCohereModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &CohereGenerator{client: client, model: model}, nil
}

// Name returns the backend and model in use
func (c *CohereGenerator) Name() string {
	return "cohere/" + c.model
}

// Generate sends the system prompt as the chat preamble and the user prompt as the message.
func (c *CohereGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (string, error) {
	if userPrompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	req := &cohere.ChatRequest{
		Message: userPrompt,
		Model:   cohere.String(c.model),
	}
	if systemPrompt != "" {
		req.Preamble = cohere.String(systemPrompt)
	}
	if opts.Temperature != nil {
		req.Temperature = cohere.Float64(float64(*opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = cohere.Int(int(opts.MaxTokens))
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", errors.New("cohere chat returned empty response")
	}

	return resp.Text, nil
}
