package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"enhancer/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

// DuckDuckGoEndpoint serves DuckDuckGo's script-free results page.
const DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

const defaultDuckDuckGoUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DuckDuckGoProvider implements the Provider interface by reading DuckDuckGo's HTML results.
// It needs no API key.
type DuckDuckGoProvider struct {
	endpoint  string
	userAgent string
	client    *http.Client
	pace      *pacer
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider. An empty userAgent
// selects a desktop browser string.
func NewDuckDuckGoProvider(userAgent string, timeout time.Duration) *DuckDuckGoProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultDuckDuckGoUserAgent
	}
	return &DuckDuckGoProvider{
		endpoint:  DuckDuckGoEndpoint,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		pace:      newPacer(2 * time.Second),
	}
}

// WithEndpoint points the provider at a different base URL.
func (d *DuckDuckGoProvider) WithEndpoint(endpoint string) *DuckDuckGoProvider {
	d.endpoint = endpoint
	return d
}

// GetName returns the name of this provider
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// Search performs a search using DuckDuckGo and returns results in page order
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if err := d.pace.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", region(config.Language))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDuckGo request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("DuckDuckGo", resp); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DuckDuckGo response: %w", err)
	}

	results := parseDuckDuckGoResults(doc, config.MaxResults)
	if len(results) == 0 && doc.Find(".anomaly-modal, #challenge-form").Length() > 0 {
		logger.Debug("DuckDuckGo CAPTCHA detected", "query", query)
		return nil, fmt.Errorf("DuckDuckGo: %w: blocked by CAPTCHA", ErrRateLimited)
	}

	logger.Info("DuckDuckGo search completed", "query", query, "results_found", len(results))

	return results, nil
}

// parseDuckDuckGoResults reads organic result blocks, skipping ads.
func parseDuckDuckGoResults(doc *goquery.Document, maxResults int) []Result {
	var results []Result
	doc.Find(".result").Not(".result--ad").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}

		link := el.Find("a.result__a").First()
		href, _ := link.Attr("href")
		finalURL := resolveRedirect(href)
		if finalURL == "" {
			return true
		}

		results = append(results, Result{
			URL:     finalURL,
			Title:   strings.Join(strings.Fields(link.Text()), " "),
			Snippet: strings.Join(strings.Fields(el.Find(".result__snippet").First().Text()), " "),
			Domain:  extractDomain(finalURL),
			Source:  "DuckDuckGo",
			Rank:    len(results) + 1,
		})
		return true
	})
	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> links.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil || href == "" {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" && strings.HasSuffix(parsed.Path, "/l/") {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return parsed.String()
	}
	return ""
}

func region(language string) string {
	switch strings.ToLower(language) {
	case "", "en":
		return "us-en"
	default:
		return "wt-wt"
	}
}
