// Package fetch downloads web pages and turns their HTML into readable text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"enhancer/internal/core"
)

const (
	// DefaultUserAgent is sent with every page request.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	// DefaultTimeout bounds a single page request, redirects included.
	DefaultTimeout = 8 * time.Second
	// DefaultMaxRedirects bounds redirect-following per request.
	DefaultMaxRedirects = 5
	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 10 << 20
)

// Page is a fetched HTTP response body.
type Page struct {
	URL         string // Final URL after redirects
	ContentType string
	Body        []byte
}

// FetcherOptions configures a Fetcher. Zero values fall back to the defaults.
type FetcherOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	Client       *http.Client // Optional; overrides Timeout and MaxRedirects
}

// Fetcher performs bounded GET requests with a fixed User-Agent. It never retries.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a page fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	client := opts.Client
	if client == nil {
		maxRedirects := opts.MaxRedirects
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}

	return &Fetcher{client: client, userAgent: opts.UserAgent}
}

// Fetch downloads rawURL. Every failure wraps core.ErrExtraction.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: empty URL", core.ErrExtraction)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %s: %w", core.ErrExtraction, rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch URL %s: %w", core.ErrExtraction, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: failed to fetch URL %s: status code %d", core.ErrExtraction, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to read response body from %s: %w", core.ErrExtraction, rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:         finalURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
