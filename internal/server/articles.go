package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"enhancer/internal/core"
	"enhancer/internal/persistence"
)

// ArticleRequest is the body of POST and PUT /articles
type ArticleRequest struct {
	Title             string `json:"title"`
	Content           string `json:"content"`
	SourceURL         string `json:"source_url"`
	Type              string `json:"type"`
	OriginalArticleID *int64 `json:"original_article_id"`
}

// CrawlRequest is the body of POST /articles/crawl
type CrawlRequest struct {
	Limit int `json:"limit"`
}

// DeleteResult confirms a deletion
type DeleteResult struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := persistence.ListOptions{Kind: core.Kind(strings.ToLower(strings.TrimSpace(q.Get("type"))))}

	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid "+name+": "+raw)
			return
		}
		*dst = n
	}

	articles, err := s.deps.Store.List(r.Context(), opts)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if articles == nil {
		articles = []core.Article{}
	}

	count := len(articles)
	s.respondJSON(w, http.StatusOK, Envelope{Success: true, Count: &count, Data: articles})
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.SourceURL) == "" {
		s.respondError(w, http.StatusBadRequest, "title, content and source_url are required")
		return
	}

	article := &core.Article{
		Title:             req.Title,
		Content:           req.Content,
		SourceURL:         strings.TrimSpace(req.SourceURL),
		Kind:              core.Kind(req.Type),
		OriginalArticleID: req.OriginalArticleID,
	}
	if err := s.deps.Store.Create(r.Context(), article); err != nil {
		s.respondFailure(w, r, err)
		return
	}

	s.log.Info("Article created", "id", article.ID, "type", article.Kind, "source_url", article.SourceURL)
	s.respondData(w, http.StatusCreated, article)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	article, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, article)
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	article, err := s.deps.Store.Update(r.Context(), id, persistence.ArticleUpdate{
		Title:   req.Title,
		Content: req.Content,
		Kind:    core.Kind(req.Type),
	})
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, article)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, DeleteResult{Success: true, ID: id})
}

func (s *Server) handleEnhanceArticle(w http.ResponseWriter, r *http.Request) {
	if !s.deps.EnhanceEnabled || s.deps.Enhancer == nil {
		s.respondError(w, http.StatusServiceUnavailable, s.unavailable("enhancement is disabled"))
		return
	}

	id, err := articleID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	generated, err := s.deps.Enhancer.EnhanceByID(r.Context(), id)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.respondData(w, http.StatusCreated, generated)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if s.deps.Seeder == nil {
		s.respondError(w, http.StatusServiceUnavailable, s.unavailable("crawler is not configured"))
		return
	}

	req := CrawlRequest{}
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.deps.DefaultCrawlLimit
	}

	saved, err := s.deps.Seeder.Seed(r.Context(), s.deps.Store, req.Limit)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if saved == nil {
		saved = []core.Article{}
	}

	count := len(saved)
	s.respondJSON(w, http.StatusCreated, Envelope{Success: true, Count: &count, Data: saved})
}

func (s *Server) unavailable(fallback string) string {
	if s.deps.UnavailableReason != "" {
		return s.deps.UnavailableReason
	}
	return fallback
}
