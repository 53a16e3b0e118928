package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"enhancer/internal/core"

	"github.com/PuerkitoBio/goquery"
)

var proseParagraphs = []string{
	"Community gardens turn vacant city lots into productive green spaces that neighbors share and maintain together.",
	"Research from several universities shows that residents who garden together report stronger social ties and lower stress.",
	"The gardens also improve access to fresh vegetables in neighborhoods where grocery stores are scarce or expensive.",
	"Local governments increasingly support these projects with water access, soil testing, and long-term land agreements.",
	"Volunteers say the most important ingredient is patience, because a healthy garden takes several seasons to establish.",
}

func articleFixture() string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Why Community Gardens Matter</title></head><body class="single has-sidebar">`)
	b.WriteString("\n<nav><a href=\"/\">Home</a> <a href=\"/subscribe\">Subscribe to our weekly newsletter for updates</a></nav>\n")
	b.WriteString("<div class=\"sidebar\"><p>Popular posts you might enjoy reading this weekend instead of working.</p></div>\n")
	b.WriteString("<article>\n<h1>Why Community Gardens Matter</h1>\n")
	b.WriteString("<div class=\"post-meta\">By Jane Doe | March 3, 2024 | 5 min read</div>\n")
	for _, p := range proseParagraphs {
		b.WriteString("<p>" + p + "</p>\n")
	}
	b.WriteString("<figure><img src=\"garden.jpg\"><figcaption>A garden in spring photographed by a neighbor last year.</figcaption></figure>\n")
	b.WriteString("</article>\n<footer><p>Copyright 2024 Example Media. All rights reserved worldwide.</p></footer>\n</body></html>")
	return b.String()
}

func TestExtractStripsNavigationAndKeepsProse(t *testing.T) {
	extractor := NewExtractor(nil, 0)

	text, err := extractor.Extract(articleFixture(), "https://example.com/blog/community-gardens")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if strings.Contains(text, "Subscribe") {
		t.Errorf("Expected navigation text to be removed, got %q", text)
	}
	for _, noise := range []string{"Popular posts", "Copyright", "photographed by a neighbor"} {
		if strings.Contains(text, noise) {
			t.Errorf("Expected %q to be removed, got %q", noise, text)
		}
	}
	for _, p := range proseParagraphs {
		if !strings.Contains(text, p) {
			t.Errorf("Expected prose %q in extracted text", p)
		}
	}
}

func minifiedArticle(paragraphs []string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Why Community Gardens Matter</title></head><body><article><h1>Why Community Gardens Matter</h1>`)
	for _, p := range paragraphs {
		b.WriteString("<p>" + p + "</p>")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func TestReadabilityKeepsParagraphBreaksInMinifiedHTML(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(minifiedArticle(proseParagraphs)))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	removeNoise(doc)

	page, _ := url.Parse("https://example.com/blog/community-gardens")
	text, ok := readabilityText(doc, page)
	if !ok {
		t.Fatal("Expected readability strategy to succeed")
	}

	if strings.Contains(text, "together.Research") || strings.Contains(text, "stress.The") {
		t.Errorf("Expected paragraphs to stay separate, got %q", text)
	}
	for i := 1; i < len(proseParagraphs); i++ {
		pair := proseParagraphs[i-1] + "\n\n" + proseParagraphs[i]
		if !strings.Contains(text, pair) {
			t.Errorf("Expected paragraphs %d and %d separated by a blank line in %q", i-1, i, text)
		}
	}
}

func TestExtractKeepsProseOpeningWithLabelWords(t *testing.T) {
	paragraphs := append([]string{
		"By 2030, most cities expect to have converted at least a fifth of their vacant lots into shared growing spaces for residents.",
		"Follow-up studies found that neighborhoods with active gardens reported fewer complaints about litter and noticeably safer streets.",
	}, proseParagraphs...)

	text, err := NewExtractor(nil, 0).Extract(minifiedArticle(paragraphs), "https://example.com/blog/gardens-2030")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for _, p := range paragraphs[:2] {
		if !strings.Contains(text, p) {
			t.Errorf("Expected %q to be kept, got %q", p, text)
		}
	}
}

func TestIsMetadataLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{line: "By Jane Doe", want: true},
		{line: "Posted by the editorial team", want: true},
		{line: "Tags: gardening, cities", want: true},
		{line: "Follow us on social media", want: true},
		{line: "By 2030, most cities will grow food", want: false},
		{line: "Follow-up studies found fewer complaints", want: false},
		{line: "Bypass roads changed how people shop", want: false},
		{line: "By Jane Doe, who has covered urban agriculture and food policy for more than a decade now", want: false},
	}
	for _, tt := range tests {
		if got := isMetadataLine(tt.line); got != tt.want {
			t.Errorf("isMetadataLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestExtractKeepsWrapperWithNoiseClass(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><div class="content-area with-sidebar"><div class="entry-content">`)
	for _, p := range proseParagraphs {
		b.WriteString("<p>" + p + "</p>")
	}
	b.WriteString(`</div><div class="widget-sidebar"><p>Popular posts you might enjoy reading this weekend instead of working.</p></div></div></body></html>`)

	text, err := NewExtractor(nil, 0).Extract(b.String(), "https://example.com/blog/gardens")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for _, p := range proseParagraphs {
		if !strings.Contains(text, p) {
			t.Errorf("Expected prose %q in extracted text", p)
		}
	}
	if strings.Contains(text, "Popular posts") {
		t.Errorf("Expected nested sidebar to be removed, got %q", text)
	}
}

func TestExtractFailsWithoutContent(t *testing.T) {
	html := `<html><body><div><p>Too short.</p><p>Also short text here.</p><span>` +
		strings.Repeat("x", 10) + `</span></div></body></html>`

	_, err := NewExtractor(nil, 0).Extract(html, "https://example.com/empty")
	if !errors.Is(err, core.ErrExtraction) {
		t.Fatalf("Expected ErrExtraction, got %v", err)
	}
}

func TestExtractTruncatesOutput(t *testing.T) {
	text, err := NewExtractor(nil, 120).Extract(articleFixture(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if n := utf8.RuneCountInString(text); n > 120 {
		t.Errorf("Expected at most 120 characters, got %d", n)
	}
}

func TestContainerTextOrder(t *testing.T) {
	long := func(s string) string { return s + strings.Repeat(" filler words for length", 3) }
	html := `<html><body>
<main><p>` + long("main one") + `</p><p>` + long("main two") + `</p><p>` + long("main three") + `</p></main>
<div class="entry-content"><p>` + long("entry one") + `</p><p>` + long("entry two") + `</p><p>` + long("entry three") + `</p></div>
<div class="post-content"><p>` + long("post one") + `</p><p>` + long("post two") + `</p></div>
</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}

	text, ok := containerText(doc, nil)
	if !ok {
		t.Fatal("Expected container strategy to succeed")
	}
	// .post-content has only two paragraphs, so .entry-content wins over main
	if !strings.HasPrefix(text, "entry one") {
		t.Errorf("Expected entry-content paragraphs first, got %q", text)
	}
	if strings.Contains(text, "main one") {
		t.Errorf("Expected only the first qualifying container, got %q", text)
	}
}

func TestParagraphTextFilters(t *testing.T) {
	html := `<html><body>
<p>Short one.</p>
<p>1234567890 - 1234567890 - 1234567890 - 1234567890 - 1234567890 !!</p>
<p>This paragraph is long enough to count as real prose for the fallback strategy.</p>
</body></html>`
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(html))

	text, ok := paragraphText(doc, nil)
	if !ok {
		t.Fatal("Expected paragraph strategy to succeed")
	}
	if text != "This paragraph is long enough to count as real prose for the fallback strategy." {
		t.Errorf("Unexpected paragraph text %q", text)
	}
}

func TestFilterReadableLines(t *testing.T) {
	page, _ := url.Parse("https://example.com/blog/why-community-gardens-matter-today")
	input := strings.Join([]string{
		"Why Community Gardens Matter Today",
		"By Jane Doe",
		"March 3, 2024",
		"Category: Urban Life and Planning",
		"12 comments and 4,000 views so far",
		"— — — 2024 — — — 17 — — —",
		"short line",
		"Community gardens turn vacant city lots into productive green spaces.",
		"   Residents   report stronger   social ties.   ",
	}, "\n")

	got := filterReadableLines(input, page)
	want := "Community gardens turn vacant city lots into productive green spaces.\n\nResidents report stronger social ties."
	if got != want {
		t.Errorf("filterReadableLines() =\n%q\nwant\n%q", got, want)
	}
}

func TestDuplicatedTitleRequiresURLMatch(t *testing.T) {
	page, _ := url.Parse("https://example.com/posts/12345")
	line := "Why Community Gardens Matter Today"
	if isDuplicatedTitle(line, page) {
		t.Error("Expected title to be kept when the URL has no matching slug")
	}

	page, _ = url.Parse("https://example.com/why-community-gardens-matter")
	if !isDuplicatedTitle(line, page) {
		t.Error("Expected title to be detected from URL slug")
	}
}

func TestFetcherSendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleFixture()))
	}))
	defer server.Close()

	fetcher := NewFetcher(FetcherOptions{})
	page, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("Expected User-Agent %q, got %q", DefaultUserAgent, gotUA)
	}
	if !strings.HasPrefix(page.ContentType, "text/html") {
		t.Errorf("Expected text/html content type, got %q", page.ContentType)
	}
}

func TestFetcherErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewFetcher(FetcherOptions{Timeout: 50 * time.Millisecond, MaxRedirects: 3})

	for _, path := range []string{"/missing", "/loop", "/slow"} {
		t.Run(path, func(t *testing.T) {
			_, err := fetcher.Fetch(context.Background(), server.URL+path)
			if !errors.Is(err, core.ErrExtraction) {
				t.Errorf("Expected ErrExtraction for %s, got %v", path, err)
			}
		})
	}

	if _, err := fetcher.Fetch(context.Background(), ""); !errors.Is(err, core.ErrExtraction) {
		t.Errorf("Expected ErrExtraction for empty URL, got %v", err)
	}
}

func TestExtractURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleFixture()))
	}))
	defer server.Close()

	extractor := NewExtractor(NewFetcher(FetcherOptions{}), 0)
	text, err := extractor.ExtractURL(context.Background(), server.URL+"/gardens")
	if err != nil {
		t.Fatalf("ExtractURL failed: %v", err)
	}
	if !strings.Contains(text, proseParagraphs[0]) {
		t.Errorf("Expected extracted prose, got %q", text)
	}

	_, err = NewExtractor(nil, 0).ExtractURL(context.Background(), server.URL)
	if !errors.Is(err, core.ErrExtraction) {
		t.Errorf("Expected ErrExtraction without fetcher, got %v", err)
	}
}
