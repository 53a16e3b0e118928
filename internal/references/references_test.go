package references

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"enhancer/internal/core"
	"enhancer/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeExtractor) ExtractURL(ctx context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()
	if err := f.errs[rawURL]; err != nil {
		return "", err
	}
	return f.texts[rawURL], nil
}

func TestDiscoverFiltersLowValueResults(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetResults([]search.Result{
		{URL: "https://example.com/whitepaper.PDF", Title: "Whitepaper"},
		{URL: "https://www.youtube.com/watch?v=abc", Title: "Talk"},
		{URL: "https://blog.one/post", Title: "First article"},
		{URL: "", Title: "No link"},
		{URL: "https://site.two/guide", Title: "Watch the Video guide"},
		{URL: "https://news.three/story", Title: "Second article"},
		{URL: "https://later.four/post", Title: "Third article"},
	})

	d := NewDiscoverer(provider, DiscovererOptions{})
	got, err := d.Discover(context.Background(), "go concurrency")
	require.NoError(t, err)

	assert.Equal(t, []core.ReferenceResult{
		{URL: "https://blog.one/post", Title: "First article"},
		{URL: "https://news.three/story", Title: "Second article"},
	}, got)
	assert.Equal(t, []string{"go concurrency"}, provider.Queries())
}

func TestDiscoverKeepsOrderAndTopN(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetResults([]search.Result{
		{URL: "https://a.example/1", Title: "A"},
		{URL: "https://b.example/2", Title: "B"},
		{URL: "https://c.example/3", Title: "C"},
	})

	got, err := NewDiscoverer(provider, DiscovererOptions{TopN: 1}).Discover(context.Background(), "topic")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.example/1", got[0].URL)
}

func TestDiscoverCustomBlockList(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetResults([]search.Result{
		{URL: "https://medium.com/p/1", Title: "Blocked"},
		{URL: "https://ok.example/2", Title: "Allowed"},
	})

	got, err := NewDiscoverer(provider, DiscovererOptions{BlockedDomains: []string{"medium.com"}}).Discover(context.Background(), "topic")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://ok.example/2", got[0].URL)
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("nothing survives filtering", func(t *testing.T) {
		provider := search.NewMockProvider()
		provider.SetResults([]search.Result{{URL: "https://x.example/file.pdf", Title: "pdf"}})
		_, err := NewDiscoverer(provider, DiscovererOptions{}).Discover(context.Background(), "topic")
		assert.ErrorIs(t, err, core.ErrNoReferencesFound)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := search.NewMockProvider()
		provider.SetError(search.ErrRateLimited)
		_, err := NewDiscoverer(provider, DiscovererOptions{}).Discover(context.Background(), "topic")
		assert.ErrorIs(t, err, core.ErrDiscovery)
		assert.ErrorIs(t, err, search.ErrRateLimited)
	})

	t.Run("missing credential", func(t *testing.T) {
		provider := search.NewMockProvider()
		provider.SetError(search.ErrMissingAPIKey)
		_, err := NewDiscoverer(provider, DiscovererOptions{}).Discover(context.Background(), "topic")
		assert.ErrorIs(t, err, core.ErrDiscovery)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("no provider", func(t *testing.T) {
		_, err := NewDiscoverer(nil, DiscovererOptions{}).Discover(context.Background(), "topic")
		assert.ErrorIs(t, err, core.ErrDiscovery)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}

func TestCollectSkipsFailuresAndKeepsOrder(t *testing.T) {
	extractor := &fakeExtractor{
		texts: map[string]string{
			"https://one.example": "first reference body",
			"https://three.example": "third reference body",
		},
		errs: map[string]error{
			"https://two.example": core.ErrExtraction,
		},
	}
	inputs := []core.ReferenceResult{
		{URL: "https://one.example", Title: "One"},
		{URL: "https://two.example", Title: "Two"},
		{URL: "https://three.example", Title: "Three"},
	}

	got, err := NewCollector(extractor, CollectorOptions{}).Collect(context.Background(), inputs)
	require.NoError(t, err)

	assert.Equal(t, []core.ReferenceArticle{
		{Source: "https://one.example", Title: "One", Content: "first reference body"},
		{Source: "https://three.example", Title: "Three", Content: "third reference body"},
	}, got)
	assert.Len(t, extractor.calls, 3)
}

func TestCollectFailsWhenNothingCollected(t *testing.T) {
	extractor := &fakeExtractor{
		texts: map[string]string{"https://blank.example": "   "},
		errs:  map[string]error{"https://down.example": errors.New("connection refused")},
	}
	inputs := []core.ReferenceResult{{URL: "https://blank.example"}, {URL: "https://down.example"}}

	_, err := NewCollector(extractor, CollectorOptions{}).Collect(context.Background(), inputs)
	assert.ErrorIs(t, err, core.ErrNoContentCollected)
}

func TestCollectOutcomesRecordReasons(t *testing.T) {
	extractor := &fakeExtractor{
		texts: map[string]string{"https://ok.example": strings.Repeat("ab", 50), "https://blank.example": ""},
		errs:  map[string]error{"https://bad.example": errors.New("status 500")},
	}
	inputs := []core.ReferenceResult{{URL: "https://ok.example"}, {URL: "https://blank.example"}, {URL: "https://bad.example"}}

	outcomes, err := NewCollector(extractor, CollectorOptions{Concurrency: 1, MaxReferenceChars: 10}).CollectOutcomes(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, StatusCollected, outcomes[0].Status)
	assert.Equal(t, "ababababab", outcomes[0].Article.Content)
	assert.Equal(t, StatusSkipped, outcomes[1].Status)
	assert.Equal(t, "empty content", outcomes[1].Reason)
	assert.Equal(t, StatusSkipped, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Reason, "status 500")
	assert.Nil(t, outcomes[2].Article)
}

func TestCollectHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(&fakeExtractor{}, CollectorOptions{}).Collect(ctx, []core.ReferenceResult{{URL: "https://x.example"}})
	assert.ErrorIs(t, err, context.Canceled)
}
