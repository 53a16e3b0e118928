package search

import (
	"context"
	"sync"
)

// MockProvider implements Provider for testing and offline runs
type MockProvider struct {
	mu      sync.Mutex
	name    string
	results []Result
	err     error
	queries []string
}

// NewMockProvider creates a mock provider with a few canned results
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "Mock",
		results: []Result{
			{URL: "https://example.com/article1", Title: "Example Article 1", Snippet: "A mock search result.", Domain: "example.com", Source: "Mock", Rank: 1},
			{URL: "https://test.org/article2", Title: "Test Article 2", Snippet: "Another mock search result.", Domain: "test.org", Source: "Mock", Rank: 2},
			{URL: "https://demo.net/article3", Title: "Demo Article 3", Snippet: "A third mock result.", Domain: "demo.net", Source: "Mock", Rank: 3},
		},
	}
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Search returns the configured results, limited by config.MaxResults
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)

	if m.err != nil {
		return nil, m.err
	}

	n := len(m.results)
	if config.MaxResults > 0 && config.MaxResults < n {
		n = config.MaxResults
	}
	results := make([]Result, n)
	copy(results, m.results[:n])
	return results, nil
}

// SetResults replaces the canned results
func (m *MockProvider) SetResults(results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

// SetError makes every subsequent Search fail with err
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetName allows customization of provider name for testing
func (m *MockProvider) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// Queries returns every query received so far
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
