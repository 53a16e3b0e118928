package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"enhancer/internal/core"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the default Gemini model used for rewriting.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultCohereModel is the default Cohere chat model.
	DefaultCohereModel = "command-r-plus"
	// DefaultTemperature and DefaultMaxTokens are the fixed sampling settings for rewrites.
	DefaultTemperature = float32(0.7)
	DefaultMaxTokens   = int32(2000)
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 90 * time.Second
)

// Provider names accepted by NewGenerator
const (
	ProviderGemini = "gemini"
	ProviderCohere = "cohere"
	ProviderStub   = "stub"
)

// GenerationOptions contains options for text generation
type GenerationOptions struct {
	Temperature *float32 // Sampling temperature (0.0 to 2.0); nil leaves the backend default
	MaxTokens   int32   // Maximum number of tokens to generate
}

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (string, error)
	Name() string
}

// Config selects and configures a generation backend
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewGenerator builds the generator named by cfg.Provider. A missing credential is
// reported as core.ErrConfiguration.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	case ProviderCohere:
		return NewCohereGenerator(cfg.APIKey, cfg.Model, cfg.Timeout)
	case ProviderStub:
		return NewStubGenerator("")
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", core.ErrConfiguration, cfg.Provider)
	}
}

// GeminiGenerator generates text with Google's Gemini models.
type GeminiGenerator struct {
	modelName string
	timeout   time.Duration
	gClient   *genai.Client
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file", core.ErrConfiguration)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		modelName: modelName,
		timeout:   timeout,
		gClient:   gClient,
	}, nil
}

// Name returns the backend and model in use
func (g *GeminiGenerator) Name() string {
	return "gemini/" + g.modelName
}

// Generate runs one GenerateContent call with the system prompt as the system instruction.
func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (string, error) {
	if userPrompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: userPrompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		temp := *opts.Temperature
		config.Temperature = &temp
	}

	resp, err := g.gClient.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
