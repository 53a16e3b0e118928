// Package references finds and reads third-party articles on the same topic as an
// original article.
package references

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"enhancer/internal/core"
	"enhancer/internal/logger"
	"enhancer/internal/search"
)

const (
	DefaultMaxResults = 10
	DefaultTopN       = 2
)

// DefaultBlockedDomains lists video and social hosts that never yield article prose.
var DefaultBlockedDomains = []string{"youtube.com", "instagram.com", "twitter.com", "facebook.com"}

// DiscovererOptions tunes the query and filtering.
type DiscovererOptions struct {
	MaxResults     int
	TopN           int
	Language       string
	BlockedDomains []string
}

// Discoverer queries a search provider for a topic and keeps the best few article links.
type Discoverer struct {
	provider search.Provider
	opts     DiscovererOptions
	log      *slog.Logger
}

// NewDiscoverer creates a discoverer. A nil provider is allowed; Discover then
// reports a configuration error.
func NewDiscoverer(provider search.Provider, opts DiscovererOptions) *Discoverer {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if len(opts.BlockedDomains) == 0 {
		opts.BlockedDomains = DefaultBlockedDomains
	}
	return &Discoverer{
		provider: provider,
		opts:     opts,
		log:      logger.With("component", "discoverer"),
	}
}

// Discover searches for topic and returns at most TopN filtered results in provider
// order. An empty filtered list fails with core.ErrNoReferencesFound.
func (d *Discoverer) Discover(ctx context.Context, topic string) ([]core.ReferenceResult, error) {
	if d.provider == nil {
		return nil, fmt.Errorf("%w: %w: no search provider configured", core.ErrDiscovery, core.ErrConfiguration)
	}

	results, err := d.provider.Search(ctx, topic, search.Config{
		MaxResults: d.opts.MaxResults,
		Language:   d.opts.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s search for %q failed: %w", core.ErrDiscovery, d.provider.GetName(), topic, err)
	}

	kept := d.filter(results)
	d.log.Info("Reference discovery completed",
		"topic", topic,
		"provider", d.provider.GetName(),
		"results", len(results),
		"kept", len(kept))

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %q", core.ErrNoReferencesFound, topic)
	}
	return kept, nil
}

func (d *Discoverer) filter(results []search.Result) []core.ReferenceResult {
	kept := make([]core.ReferenceResult, 0, d.opts.TopN)
	for _, r := range results {
		if len(kept) == d.opts.TopN {
			break
		}
		if reason := d.rejectReason(r); reason != "" {
			d.log.Debug("Dropped search result", "url", r.URL, "reason", reason)
			continue
		}
		kept = append(kept, core.ReferenceResult{URL: r.URL, Title: r.Title, Snippet: r.Snippet})
	}
	return kept
}

func (d *Discoverer) rejectReason(r search.Result) string {
	if strings.TrimSpace(r.URL) == "" {
		return "empty url"
	}
	u := strings.ToLower(r.URL)
	if strings.Contains(u, ".pdf") {
		return "pdf"
	}
	for _, domain := range d.opts.BlockedDomains {
		if domain != "" && strings.Contains(u, domain) {
			return "blocked domain " + domain
		}
	}
	if strings.Contains(strings.ToLower(r.Title), "video") {
		return "video title"
	}
	return ""
}
