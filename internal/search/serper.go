package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"enhancer/internal/logger"
)

// SerperEndpoint is the Serper Google search API.
const SerperEndpoint = "https://google.serper.dev/search"

// SerperProvider implements Provider using the Serper API
type SerperProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerperProvider creates a new Serper search provider
func NewSerperProvider(apiKey string, timeout time.Duration) *SerperProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SerperProvider{
		apiKey:   apiKey,
		endpoint: SerperEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithEndpoint points the provider at a different base URL.
func (s *SerperProvider) WithEndpoint(endpoint string) *SerperProvider {
	s.endpoint = endpoint
	return s
}

// GetName returns the name of this provider
func (s *SerperProvider) GetName() string {
	return "Serper"
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
	HL    string `json:"hl,omitempty"`
}

type serperItem struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

type serperResponse struct {
	Organic []serperItem `json:"organic"`
	News    []serperItem `json:"news"`
	Message string       `json:"message"`
}

// Search performs a search using Serper. Organic results are preferred; news
// results are used when the response has no organic section.
func (s *SerperProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	payload, err := json.Marshal(serperRequest{Query: query, Num: config.MaxResults, HL: config.Language})
	if err != nil {
		return nil, fmt.Errorf("failed to encode Serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create Serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Serper request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("Serper", resp); err != nil {
		return nil, err
	}

	var apiResponse serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Serper response: %w", err)
	}

	items := apiResponse.Organic
	if len(items) == 0 {
		items = apiResponse.News
	}

	results := make([]Result, 0, len(items))
	for i, item := range items {
		rank := item.Position
		if rank == 0 {
			rank = i + 1
		}
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Source:  s.GetName(),
			Rank:    rank,
		})
	}

	if len(results) == 0 {
		logger.Warn("Serper returned no results", "query", query, "message", apiResponse.Message)
	}
	logger.Info("Serper search completed", "query", query, "results_found", len(results))

	return results, nil
}

// checkStatus turns non-200 responses into errors, keeping a short body excerpt.
func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", provider, ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: %w (status %d)", provider, ErrProviderUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("%s request failed with status %d: %s", provider, resp.StatusCode, bytes.TrimSpace(excerpt))
	}
}
