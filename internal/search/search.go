// Package search wraps external web-search APIs behind a single Provider interface.
package search

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Provider defines the unified interface for search providers
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) ([]Result, error)

	// GetName returns the name of the search provider
	GetName() string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults int    // Number of results requested from the provider
	Language   string // Language preference (e.g., "en")
}

// Result represents a unified search result
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
	Source  string `json:"source"` // Provider name
	Rank    int    `json:"rank"`   // Position in search results
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeSerper     ProviderType = "serper"
	ProviderTypeSerpAPI    ProviderType = "serpapi"
	ProviderTypeGoogle     ProviderType = "google"
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeMock       ProviderType = "mock"
)

const defaultTimeout = 10 * time.Second

// ProviderFactory creates search providers based on type and configuration
type ProviderFactory struct{}

// NewProviderFactory creates a new provider factory
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// CreateProvider creates a search provider of the specified type. Keyed providers
// fail with ErrMissingAPIKey when config["api_key"] (and, for Google,
// config["search_engine_id"]) is empty. Optional keys: "timeout" overrides the
// request timeout, "user_agent" is sent by DuckDuckGo.
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	timeout := defaultTimeout
	if raw := config["timeout"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	switch providerType {
	case ProviderTypeSerper:
		apiKey := strings.TrimSpace(config["api_key"])
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewSerperProvider(apiKey, timeout), nil
	case ProviderTypeSerpAPI:
		apiKey := strings.TrimSpace(config["api_key"])
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewSerpAPIProvider(apiKey, timeout), nil
	case ProviderTypeGoogle:
		apiKey := strings.TrimSpace(config["api_key"])
		searchID := strings.TrimSpace(config["search_engine_id"])
		if apiKey == "" || searchID == "" {
			return nil, ErrMissingAPIKey
		}
		return NewGoogleProvider(apiKey, searchID, timeout), nil
	case ProviderTypeDuckDuckGo:
		return NewDuckDuckGoProvider(config["user_agent"], timeout), nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// GetAvailableProviders returns a list of available provider types
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeSerper,
		ProviderTypeSerpAPI,
		ProviderTypeGoogle,
		ProviderTypeDuckDuckGo,
		ProviderTypeMock,
	}
}

// extractDomain returns the host of urlStr without a leading "www."
func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// pacer spaces consecutive calls to one provider by at least interval.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval}
}

func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if d := p.interval - time.Since(p.last); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}
