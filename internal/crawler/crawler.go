// Package crawler discovers original articles on a blog listing page and stores them.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"enhancer/internal/core"
	"enhancer/internal/fetch"
	"enhancer/internal/logger"
	"enhancer/internal/persistence"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	// DefaultListingURL is the blog index crawled when none is configured.
	DefaultListingURL = "https://beyondchats.com/blogs/"
	DefaultLimit      = 5

	itemSelector   = `article, .post, .blog-item, [data-article]`
	titleSelector  = `h2, h3, .title, [class*="title"]`
	teaserSelector = `p, .excerpt, .summary, [class*="excerpt"]`
)

// Status tells whether an item got its full page content.
type Status string

const (
	StatusHydrated Status = "hydrated"
	StatusDegraded Status = "degraded"
)

// Outcome is the per-item result of a crawl. Degraded items carry the teaser (or the
// title) as content and the extraction failure as Reason.
type Outcome struct {
	Article core.Article
	Status  Status
	Reason  string
}

// URLExtractor returns the readable text of a page.
type URLExtractor interface {
	ExtractURL(ctx context.Context, rawURL string) (string, error)
}

// Crawler reads a listing page (HTML or RSS/Atom) and hydrates each entry.
type Crawler struct {
	listingURL string
	fetcher    fetch.PageFetcher
	extractor  URLExtractor
	log        *slog.Logger
}

// New creates a crawler for listingURL. An empty listingURL selects DefaultListingURL.
func New(listingURL string, fetcher fetch.PageFetcher, extractor URLExtractor) *Crawler {
	if listingURL == "" {
		listingURL = DefaultListingURL
	}
	return &Crawler{
		listingURL: listingURL,
		fetcher:    fetcher,
		extractor:  extractor,
		log:        logger.With("component", "crawler", "listing_url", listingURL),
	}
}

// listingItem is one entry found on the listing page before hydration.
type listingItem struct {
	title  string
	teaser string
	url    string
}

// ListingURL returns the page the crawler reads.
func (c *Crawler) ListingURL() string {
	return c.listingURL
}

// CrawlLatest returns at most limit original articles in listing order.
func (c *Crawler) CrawlLatest(ctx context.Context, limit int) ([]core.Article, error) {
	outcomes, err := c.CrawlOutcomes(ctx, limit)
	if err != nil {
		return nil, err
	}
	articles := make([]core.Article, len(outcomes))
	for i, o := range outcomes {
		articles[i] = o.Article
	}
	return articles, nil
}

// CrawlOutcomes crawls the listing and reports how each item was hydrated.
func (c *Crawler) CrawlOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	page, err := c.fetcher.Fetch(ctx, c.listingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}

	var items []listingItem
	if isFeed(page) {
		items, err = feedItems(page, limit)
	} else {
		items, err = htmlItems(page, limit)
	}
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		c.log.Warn("No articles found on listing page")
		return []Outcome{}, nil
	}

	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, c.hydrate(ctx, item))
	}

	c.log.Info("Crawl completed", "items", len(outcomes))
	return outcomes, nil
}

func (c *Crawler) hydrate(ctx context.Context, item listingItem) Outcome {
	article := core.Article{
		Title:     item.title,
		SourceURL: item.url,
		Kind:      core.KindOriginal,
	}

	text, err := c.extractor.ExtractURL(ctx, item.url)
	if err == nil && strings.TrimSpace(text) != "" {
		article.Content = text
		return Outcome{Article: article, Status: StatusHydrated}
	}

	reason := "empty content"
	if err != nil {
		reason = err.Error()
	}
	c.log.Warn("Using listing teaser as content", "url", item.url, "reason", reason)

	article.Content = item.teaser
	if article.Content == "" {
		article.Content = item.title
	}
	return Outcome{Article: article, Status: StatusDegraded, Reason: reason}
}

// htmlItems applies the listing selectors to an HTML page.
func htmlItems(page *fetch.Page, limit int) ([]listingItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}
	base, _ := url.Parse(page.URL)

	entries := doc.Find(itemSelector)
	if entries.Length() > limit {
		entries = entries.Slice(0, limit)
	}

	var items []listingItem
	entries.Each(func(_ int, el *goquery.Selection) {
		title := firstText(el, titleSelector)
		if title == "" {
			title = firstText(el, "a")
		}

		href, ok := el.Find("a[href]").First().Attr("href")
		if !ok {
			href, _ = el.Attr("href")
		}
		link := resolve(base, href)

		if title == "" || link == "" {
			logger.Debug("Skipping listing entry without title or link", "title", title, "href", href)
			return
		}
		items = append(items, listingItem{title: title, teaser: firstText(el, teaserSelector), url: link})
	})
	return items, nil
}

// feedItems reads an RSS or Atom listing.
func feedItems(page *fetch.Page, limit int) ([]listingItem, error) {
	feed, err := gofeed.NewParser().ParseString(string(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	base, _ := url.Parse(page.URL)

	var items []listingItem
	for _, entry := range feed.Items {
		if len(items) == limit {
			break
		}
		title := strings.TrimSpace(entry.Title)
		link := resolve(base, entry.Link)
		if title == "" || link == "" {
			continue
		}
		teaser := entry.Description
		if teaser == "" {
			teaser = entry.Content
		}
		items = append(items, listingItem{title: title, teaser: plainText(teaser), url: link})
	}
	return items, nil
}

func isFeed(page *fetch.Page) bool {
	ct := strings.ToLower(page.ContentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return true
	}
	head := strings.ToLower(string(bytes.TrimSpace(page.Body[:min(len(page.Body), 512)])))
	if strings.Contains(ct, "xml") || strings.HasPrefix(head, "<?xml") {
		return strings.Contains(head, "<rss") || strings.Contains(head, "<feed")
	}
	return strings.HasPrefix(head, "<rss") || strings.HasPrefix(head, "<feed")
}

func firstText(el *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(el.Find(selector).First().Text()), " ")
}

// plainText strips markup from feed descriptions.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}

// Seed crawls the listing and upserts every article by source URL. Store failures
// skip the item.
func (c *Crawler) Seed(ctx context.Context, store persistence.ArticleStore, limit int) ([]core.Article, error) {
	articles, err := c.CrawlLatest(ctx, limit)
	if err != nil {
		return nil, err
	}

	saved := make([]core.Article, 0, len(articles))
	for i := range articles {
		article := articles[i]
		if err := store.Upsert(ctx, &article); err != nil {
			logger.Error("Failed to save crawled article", err, "url", article.SourceURL)
			continue
		}
		saved = append(saved, article)
	}

	c.log.Info("Seeded articles", "found", len(articles), "saved", len(saved))
	return saved, nil
}

// SeedIfEmpty seeds only when the store holds no original articles.
func (c *Crawler) SeedIfEmpty(ctx context.Context, store persistence.ArticleStore, limit int) ([]core.Article, error) {
	count, err := store.CountByKind(ctx, core.KindOriginal)
	if err != nil {
		return nil, fmt.Errorf("failed to count original articles: %w", err)
	}
	if count > 0 {
		c.log.Debug("Store already has originals, skipping seed", "originals", count)
		return nil, nil
	}
	return c.Seed(ctx, store, limit)
}
