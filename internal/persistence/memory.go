package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"enhancer/internal/core"
)

// MemoryStore implements ArticleStore in process memory. It backs tests and
// runs without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*core.Article
	byURL  map[string]int64
	now    func() time.Time
}

var _ ArticleStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byID:   make(map[int64]*core.Article),
		byURL:  make(map[string]int64),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(ctx context.Context, article *core.Article) error {
	article.Kind = article.Kind.Normalize()
	if err := article.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURL[article.SourceURL]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicate, article.SourceURL)
	}
	if err := s.checkParent(article); err != nil {
		return err
	}
	s.insert(article)
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, article *core.Article) error {
	article.Kind = article.Kind.Normalize()
	if err := article.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkParent(article); err != nil {
		return err
	}

	id, exists := s.byURL[article.SourceURL]
	if !exists {
		s.insert(article)
		return nil
	}

	stored := s.byID[id]
	stored.Title = article.Title
	stored.Content = article.Content
	stored.Kind = article.Kind
	stored.OriginalArticleID = copyID(article.OriginalArticleID)
	stored.UpdatedAt = s.tick(stored.UpdatedAt)

	*article = cloneArticle(stored)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*core.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	article := cloneArticle(stored)
	return &article, nil
}

func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]core.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	articles := make([]core.Article, 0, len(s.byID))
	for _, stored := range s.byID {
		if opts.Kind != "" && stored.Kind.Normalize() != opts.Kind.Normalize() {
			continue
		}
		articles = append(articles, cloneArticle(stored))
	}

	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].CreatedAt.After(articles[j].CreatedAt)
		}
		return articles[i].ID > articles[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(articles) {
			return []core.Article{}, nil
		}
		articles = articles[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(articles) {
		articles = articles[:opts.Limit]
	}
	return articles, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, update ArticleUpdate) (*core.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	merged, err := update.apply(cloneArticle(stored))
	if err != nil {
		return nil, err
	}

	stored.Title = merged.Title
	stored.Content = merged.Content
	stored.Kind = merged.Kind
	stored.UpdatedAt = s.tick(stored.UpdatedAt)

	article := cloneArticle(stored)
	return &article, nil
}

// Delete removes the article and, like the database's cascading foreign key, every
// article generated from it.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	s.remove(id)
	return nil
}

func (s *MemoryStore) CountByKind(ctx context.Context, kind core.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, stored := range s.byID {
		if stored.Kind.Normalize() == kind.Normalize() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) insert(article *core.Article) {
	now := s.now()
	stored := cloneArticle(article)
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextID++

	s.byID[stored.ID] = &stored
	s.byURL[stored.SourceURL] = stored.ID
	*article = cloneArticle(&stored)
}

func (s *MemoryStore) remove(id int64) {
	stored := s.byID[id]
	delete(s.byID, id)
	delete(s.byURL, stored.SourceURL)
	for childID, child := range s.byID {
		if child.OriginalArticleID != nil && *child.OriginalArticleID == id {
			s.remove(childID)
		}
	}
}

func (s *MemoryStore) checkParent(article *core.Article) error {
	if article.OriginalArticleID == nil {
		return nil
	}
	if _, ok := s.byID[*article.OriginalArticleID]; !ok {
		return fmt.Errorf("%w: original article %d does not exist", core.ErrInvalidArticle, *article.OriginalArticleID)
	}
	return nil
}

// tick returns the current time, forced strictly after prev.
func (s *MemoryStore) tick(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func cloneArticle(a *core.Article) core.Article {
	clone := *a
	clone.OriginalArticleID = copyID(a.OriginalArticleID)
	return clone
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	return core.Int64Ptr(*id)
}
