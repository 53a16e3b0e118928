package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"enhancer/internal/core"
	"enhancer/internal/logger"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	// DefaultMaxContentChars bounds extracted text.
	DefaultMaxContentChars = 100000

	minReadableRawChars = 300 // readability output before line filtering
	minReadableChars    = 200 // readability output after line filtering
	minParagraphChars   = 50
	minContainerParas   = 2 // a container needs strictly more than this
)

// noiseSelectors are removed from the DOM before any strategy runs.
var noiseSelectors = []string{
	"script", "style", "noscript", "template", "nav", "header", "footer", "form",
	"iframe", "aside", "button", "svg", "img", "picture", "figure", "figcaption",
	"video", "audio", "[role='navigation']", "[aria-hidden='true']",
}

// noiseClassPatterns are matched as substrings of class and id attributes. A match
// that wraps a content container with enough prose is kept.
var noiseClassPatterns = []string{
	"meta", "byline", "author", "share", "social", "comment", "caption", "advert",
	"sponsor", "sidebar", "related", "newsletter", "cookie", "popup", "promo", "breadcrumb",
}

// contentContainerSelectors are tried in order by the container strategy.
var contentContainerSelectors = []string{
	".post-content", ".article-content", ".entry-content", ".post-body", ".article-body",
	".blog-content", ".content-area", "article", "main", "[role='main']",
}

// readableBlocks are the elements whose text becomes one line of reader-mode output.
const readableBlocks = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre"

var (
	tagNoiseSelector   = strings.Join(append(append([]string{}, noiseSelectors...), `[class~="ad"]`, `[class~="ads"]`, `[class*="ad-slot"]`), ", ")
	classNoiseSelector = buildClassNoiseSelector()
	containerSelector  = strings.Join(contentContainerSelectors, ", ")
)

func buildClassNoiseSelector() string {
	// Structural roots are never removed by class, since a body class like
	// "has-sidebar" would otherwise take the whole page with it.
	const keep = ":not(html):not(body):not(main):not(article)"
	var selectors []string
	for _, pattern := range noiseClassPatterns {
		selectors = append(selectors,
			fmt.Sprintf(`[class*=%q]%s`, pattern, keep),
			fmt.Sprintf(`[id*=%q]%s`, pattern, keep),
		)
	}
	return strings.Join(selectors, ", ")
}

// removeNoise strips tag-level noise, then class/id matches that do not wrap the article.
func removeNoise(doc *goquery.Document) {
	doc.Find(tagNoiseSelector).Remove()
	doc.Find(classNoiseSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !wrapsContent(s)
	}).Remove()
}

// wrapsContent reports whether s contains a content container holding more than
// minContainerParas qualifying paragraphs.
func wrapsContent(s *goquery.Selection) bool {
	found := false
	s.Find(containerSelector).EachWithBreak(func(_ int, c *goquery.Selection) bool {
		found = len(qualifyingParagraphs(c.Find("p"))) > minContainerParas
		return !found
	})
	return found
}

// strategy is one extraction approach. ok=false passes control to the next one.
type strategy struct {
	name string
	run  func(doc *goquery.Document, pageURL *url.URL) (text string, ok bool)
}

// PageFetcher downloads pages for ExtractURL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Extractor turns one HTML document into clean prose using an ordered strategy list:
// reader-mode first, content containers second, every paragraph last.
type Extractor struct {
	fetcher    PageFetcher
	maxChars   int
	strategies []strategy
	log        *slog.Logger
}

// NewExtractor creates an extractor. maxChars <= 0 selects DefaultMaxContentChars.
func NewExtractor(fetcher PageFetcher, maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	e := &Extractor{
		fetcher:  fetcher,
		maxChars: maxChars,
		log:      logger.With("component", "extractor"),
	}
	e.strategies = []strategy{
		{name: "readability", run: readabilityText},
		{name: "containers", run: containerText},
		{name: "paragraphs", run: paragraphText},
	}
	return e
}

// ExtractURL fetches rawURL and extracts its readable text.
func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (string, error) {
	if e.fetcher == nil {
		return "", fmt.Errorf("%w: no fetcher configured", core.ErrExtraction)
	}
	page, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return e.Extract(string(page.Body), page.URL)
}

// Extract returns the readable text of an HTML document. It fails with
// core.ErrExtraction when no strategy isolates any text.
func (e *Extractor) Extract(html, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse HTML from %s: %w", core.ErrExtraction, pageURL, err)
	}

	removeNoise(doc)

	base := parseBaseURL(pageURL)
	for _, s := range e.strategies {
		text, ok := s.run(doc, base)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		e.log.Debug("Extracted readable text", "url", pageURL, "strategy", s.name, "chars", utf8.RuneCountInString(text))
		return truncateRunes(text, e.maxChars), nil
	}

	return "", fmt.Errorf("%w: no extractable content at %s", core.ErrExtraction, pageURL)
}

func parseBaseURL(pageURL string) *url.URL {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	return u
}

func readabilityText(doc *goquery.Document, pageURL *url.URL) (string, bool) {
	html, err := doc.Html()
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", false
	}

	raw := blockLines(article)
	if utf8.RuneCountInString(raw) <= minReadableRawChars {
		return "", false
	}

	text := filterReadableLines(raw, pageURL)
	if utf8.RuneCountInString(text) <= minReadableChars {
		return "", false
	}
	return text, true
}

// blockLines renders the reader-mode article one block element per line, so that
// minified markup keeps its paragraph boundaries. Nested blocks are emitted once,
// by the innermost element.
func blockLines(article readability.Article) string {
	if article.Node == nil {
		return strings.TrimSpace(article.TextContent)
	}

	var lines []string
	goquery.NewDocumentFromNode(article.Node).Find(readableBlocks).Each(func(_ int, s *goquery.Selection) {
		if s.Find(readableBlocks).Length() > 0 {
			return
		}
		if line := collapseSpaces(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return strings.TrimSpace(article.TextContent)
	}
	return strings.Join(lines, "\n")
}

func containerText(doc *goquery.Document, _ *url.URL) (string, bool) {
	for _, selector := range contentContainerSelectors {
		paragraphs := qualifyingParagraphs(doc.Find(selector).Find("p"))
		if len(paragraphs) > minContainerParas {
			return strings.Join(paragraphs, "\n\n"), true
		}
	}
	return "", false
}

func paragraphText(doc *goquery.Document, _ *url.URL) (string, bool) {
	paragraphs := qualifyingParagraphs(doc.Find("p"))
	if len(paragraphs) == 0 {
		return "", false
	}
	return strings.Join(paragraphs, "\n\n"), true
}

func qualifyingParagraphs(sel *goquery.Selection) []string {
	var paragraphs []string
	sel.Each(func(_ int, p *goquery.Selection) {
		text := collapseSpaces(p.Text())
		if utf8.RuneCountInString(text) > minParagraphChars && !isSymbolsOnly(text) {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
