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

// GoogleEndpoint is the Google Custom Search JSON API.
const GoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// Google CSE returns at most this many results per request
const googleMaxResults = 10

// GoogleProvider implements Provider using Google Custom Search API
type GoogleProvider struct {
	apiKey   string
	searchID string
	endpoint string
	client   *http.Client
	pace     *pacer
}

// NewGoogleProvider creates a new Google Custom Search provider
func NewGoogleProvider(apiKey, searchID string, timeout time.Duration) *GoogleProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GoogleProvider{
		apiKey:   apiKey,
		searchID: searchID,
		endpoint: GoogleEndpoint,
		client:   &http.Client{Timeout: timeout},
		pace:     newPacer(100 * time.Millisecond),
	}
}

// WithEndpoint points the provider at a different base URL.
func (g *GoogleProvider) WithEndpoint(endpoint string) *GoogleProvider {
	g.endpoint = endpoint
	return g
}

// GetName returns the name of this provider
func (g *GoogleProvider) GetName() string {
	return "Google Custom Search"
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search performs a search using Google Custom Search API
func (g *GoogleProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if err := g.pace.wait(ctx); err != nil {
		return nil, err
	}

	num := config.MaxResults
	if num <= 0 || num > googleMaxResults {
		num = googleMaxResults
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	if config.Language != "" {
		params.Set("hl", config.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google CSE request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Google CSE request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("Google CSE", resp); err != nil {
		return nil, err
	}

	var apiResponse googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Google CSE response: %w", err)
	}
	if apiResponse.Error.Code != 0 {
		return nil, fmt.Errorf("google CSE API error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message)
	}

	results := make([]Result, 0, len(apiResponse.Items))
	for i, item := range apiResponse.Items {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Source:  "Google",
			Rank:    i + 1,
		})
	}

	logger.Info("Google Custom Search completed", "query", query, "results_found", len(results))

	return results, nil
}
