// Package persistence provides the article record store
package persistence

import (
	"context"

	"enhancer/internal/core"
)

// ArticleStore handles article persistence. Source URL is the unique natural key.
type ArticleStore interface {
	// Create inserts a new article and fills ID and timestamps.
	// A source URL collision fails with core.ErrDuplicate.
	Create(ctx context.Context, article *core.Article) error

	// Upsert inserts or, on source URL conflict, updates title, content, type and
	// original_article_id in place. ID and timestamps are filled from the stored row.
	Upsert(ctx context.Context, article *core.Article) error

	// Get retrieves an article by ID, failing with core.ErrNotFound when absent
	Get(ctx context.Context, id int64) (*core.Article, error)

	// List retrieves articles newest first
	List(ctx context.Context, opts ListOptions) ([]core.Article, error)

	// Update changes title, content and optionally type of an existing article
	Update(ctx context.Context, id int64, update ArticleUpdate) (*core.Article, error)

	// Delete removes an article by ID, failing with core.ErrNotFound when absent
	Delete(ctx context.Context, id int64) error

	// CountByKind counts articles of one kind
	CountByKind(ctx context.Context, kind core.Kind) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// ListOptions filters and pages List results
type ListOptions struct {
	Kind   core.Kind // Empty lists every kind
	Limit  int       // Zero means no limit
	Offset int
}

// ArticleUpdate carries the mutable fields of an article
type ArticleUpdate struct {
	Title   string
	Content string
	Kind    core.Kind // Empty keeps the stored kind
}

// apply merges the update into a copy of current and validates the result.
func (u ArticleUpdate) apply(current core.Article) (core.Article, error) {
	current.Title = u.Title
	current.Content = u.Content
	if u.Kind != "" {
		current.Kind = u.Kind.Normalize()
	}
	if err := current.Validate(); err != nil {
		return core.Article{}, err
	}
	return current, nil
}
