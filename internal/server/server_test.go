package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"enhancer/internal/config"
	"enhancer/internal/core"
	"enhancer/internal/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnhancer struct {
	store persistence.ArticleStore
	err   error
}

func (f *fakeEnhancer) EnhanceByID(ctx context.Context, id int64) (*core.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	original, err := f.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !original.Kind.IsOriginal() {
		return nil, fmt.Errorf("%w: article %d", core.ErrNotOriginal, id)
	}
	generated := &core.Article{
		Title:             original.Title + " (AI Enhanced)",
		Content:           "rewritten",
		SourceURL:         original.SourceURL + "#enhanced",
		Kind:              core.KindGenerated,
		OriginalArticleID: core.Int64Ptr(id),
	}
	if err := f.store.Create(ctx, generated); err != nil {
		return nil, err
	}
	return generated, nil
}

type fakeSeeder struct {
	lastLimit int
}

func (f *fakeSeeder) Seed(ctx context.Context, store persistence.ArticleStore, limit int) ([]core.Article, error) {
	f.lastLimit = limit
	var saved []core.Article
	for i := 0; i < limit; i++ {
		a := core.Article{
			Title:     fmt.Sprintf("Crawled %d", i),
			Content:   "body",
			SourceURL: fmt.Sprintf("https://blog.example/%d", i),
		}
		if err := store.Upsert(ctx, &a); err != nil {
			return nil, err
		}
		saved = append(saved, a)
	}
	return saved, nil
}

type pingFailStore struct {
	*persistence.MemoryStore
}

func (pingFailStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Store == nil {
		deps.Store = persistence.NewMemoryStore()
	}
	return New(deps, config.Server{Host: "127.0.0.1", Port: 0, RequestTimeout: 5 * time.Second})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeArticle(t *testing.T, w *httptest.ResponseRecorder) core.Article {
	t.Helper()
	var resp struct {
		Success bool         `json:"success"`
		Data    core.Article `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.Data
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Deps{})
	w := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	s = newTestServer(t, Deps{Store: pingFailStore{persistence.NewMemoryStore()}})
	w = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestArticleCRUD(t *testing.T) {
	s := newTestServer(t, Deps{})

	w := do(t, s, http.MethodPost, "/articles", `{"title":"Chatbots","content":"Original body","source_url":"https://blog.example/chatbots"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeArticle(t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, core.KindOriginal, created.Kind)

	w = do(t, s, http.MethodPost, "/articles", `{"title":"Again","content":"x","source_url":"https://blog.example/chatbots"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	path := fmt.Sprintf("/articles/%d", created.ID)
	w = do(t, s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chatbots", decodeArticle(t, w).Title)

	w = do(t, s, http.MethodPut, path, `{"title":"Chatbots in 2025","content":"Corrected body"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeArticle(t, w)
	assert.Equal(t, "Chatbots in 2025", updated.Title)
	assert.Equal(t, core.KindOriginal, updated.Kind, "empty type keeps the stored kind")

	w = do(t, s, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	var deleted struct {
		Success bool         `json:"success"`
		Data    DeleteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.True(t, deleted.Data.Success)
	assert.Equal(t, created.ID, deleted.Data.ID)

	w = do(t, s, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))
}

func TestArticleValidation(t *testing.T) {
	s := newTestServer(t, Deps{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "create missing source_url", method: http.MethodPost, path: "/articles", body: `{"title":"t","content":"c"}`, want: http.StatusBadRequest},
		{name: "create malformed body", method: http.MethodPost, path: "/articles", body: `{`, want: http.StatusBadRequest},
		{name: "generated without parent", method: http.MethodPost, path: "/articles", body: `{"title":"t","content":"c","source_url":"u","type":"generated"}`, want: http.StatusBadRequest},
		{name: "update missing content", method: http.MethodPut, path: "/articles/1", body: `{"title":"t"}`, want: http.StatusBadRequest},
		{name: "update absent", method: http.MethodPut, path: "/articles/99", body: `{"title":"t","content":"c"}`, want: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, path: "/articles/abc", want: http.StatusBadRequest},
		{name: "delete absent", method: http.MethodDelete, path: "/articles/42", want: http.StatusNotFound},
		{name: "bad limit", method: http.MethodGet, path: "/articles?limit=-1", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestListArticlesFiltersByType(t *testing.T) {
	store := persistence.NewMemoryStore()
	enhancer := &fakeEnhancer{store: store}
	s := newTestServer(t, Deps{Store: store, Enhancer: enhancer, EnhanceEnabled: true})

	w := do(t, s, http.MethodPost, "/articles", `{"title":"One","content":"c","source_url":"https://blog.example/one"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	one := decodeArticle(t, w)
	w = do(t, s, http.MethodPost, fmt.Sprintf("/articles/%d/enhance", one.ID), "")
	require.Equal(t, http.StatusCreated, w.Code)

	var list struct {
		Success bool           `json:"success"`
		Count   int            `json:"count"`
		Data    []core.Article `json:"data"`
	}

	w = do(t, s, http.MethodGet, "/articles", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	w = do(t, s, http.MethodGet, "/articles?type=Generated", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, core.KindGenerated, list.Data[0].Kind)

	w = do(t, s, http.MethodGet, "/articles?type=unknown", "")
	assert.JSONEq(t, `{"success":true,"count":0,"data":[]}`, w.Body.String())
}

func TestEnhanceEndpoint(t *testing.T) {
	store := persistence.NewMemoryStore()
	original := &core.Article{Title: "Original", Content: "c", SourceURL: "https://blog.example/o"}
	require.NoError(t, store.Create(context.Background(), original))

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, Deps{Store: store, Enhancer: &fakeEnhancer{store: store}, UnavailableReason: "GEMINI_API_KEY is not set"})
		w := do(t, s, http.MethodPost, fmt.Sprintf("/articles/%d/enhance", original.ID), "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "GEMINI_API_KEY is not set", errorMessage(t, w))
	})

	s := newTestServer(t, Deps{Store: store, Enhancer: &fakeEnhancer{store: store}, EnhanceEnabled: true})

	w := do(t, s, http.MethodPost, fmt.Sprintf("/articles/%d/enhance", original.ID), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	generated := decodeArticle(t, w)
	assert.Equal(t, core.KindGenerated, generated.Kind)
	require.NotNil(t, generated.OriginalArticleID)
	assert.Equal(t, original.ID, *generated.OriginalArticleID)

	w = do(t, s, http.MethodPost, fmt.Sprintf("/articles/%d/enhance", generated.ID), "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "generated articles cannot be enhanced")

	w = do(t, s, http.MethodPost, "/articles/999/enhance", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	failing := newTestServer(t, Deps{Store: store, Enhancer: &fakeEnhancer{err: fmt.Errorf("%w: search failed", core.ErrDiscovery)}, EnhanceEnabled: true})
	w = do(t, failing, http.MethodPost, fmt.Sprintf("/articles/%d/enhance", original.ID), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, errorMessage(t, w), "search failed")
}

func TestCrawlEndpoint(t *testing.T) {
	seeder := &fakeSeeder{}
	s := newTestServer(t, Deps{Seeder: seeder, DefaultCrawlLimit: 3})

	w := do(t, s, http.MethodPost, "/articles/crawl", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3, seeder.lastLimit)

	w = do(t, s, http.MethodPost, "/articles/crawl", `{"limit":2}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, seeder.lastLimit)

	var resp struct {
		Count int            `json:"count"`
		Data  []core.Article `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	noCrawler := newTestServer(t, Deps{})
	w = do(t, noCrawler, http.MethodPost, "/articles/crawl", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORS(t *testing.T) {
	s := New(Deps{Store: persistence.NewMemoryStore()}, config.Server{
		CORS: config.CORS{Enabled: true, AllowedOrigins: []string{"http://localhost:3000"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/articles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
