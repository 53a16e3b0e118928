package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"enhancer/internal/logger"
)

// SerpAPIEndpoint is the SerpAPI search URL.
const SerpAPIEndpoint = "https://serpapi.com/search"

// SerpAPIProvider implements Provider using SerpAPI
type SerpAPIProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerpAPIProvider creates a new SerpAPI search provider
func NewSerpAPIProvider(apiKey string, timeout time.Duration) *SerpAPIProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SerpAPIProvider{
		apiKey:   apiKey,
		endpoint: SerpAPIEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithEndpoint points the provider at a different base URL.
func (s *SerpAPIProvider) WithEndpoint(endpoint string) *SerpAPIProvider {
	s.endpoint = endpoint
	return s
}

// GetName returns the name of this provider
func (s *SerpAPIProvider) GetName() string {
	return "SerpAPI"
}

// Search performs a Google search through SerpAPI
func (s *SerpAPIProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("api_key", s.apiKey)
	if config.MaxResults > 0 {
		params.Set("num", strconv.Itoa(config.MaxResults))
	}
	if config.Language != "" {
		params.Set("hl", config.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SerpAPI request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("SerpAPI", resp); err != nil {
		return nil, err
	}

	var apiResponse struct {
		OrganicResults []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
		} `json:"organic_results"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse SerpAPI response: %w", err)
	}
	if apiResponse.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", apiResponse.Error)
	}

	results := make([]Result, 0, len(apiResponse.OrganicResults))
	for _, item := range apiResponse.OrganicResults {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Source:  s.GetName(),
			Rank:    item.Position,
		})
	}

	logger.Info("SerpAPI search completed", "query", query, "results_found", len(results))

	return results, nil
}
