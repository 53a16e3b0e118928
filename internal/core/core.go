package core

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes crawled originals from pipeline output.
type Kind string

const (
	KindOriginal  Kind = "original"
	KindGenerated Kind = "generated"
)

// IsOriginal reports whether k may be enhanced. Comparison is case-insensitive and
// an unset kind counts as original.
func (k Kind) IsOriginal() bool {
	normalized := strings.ToLower(strings.TrimSpace(string(k)))
	return normalized == "" || normalized == string(KindOriginal)
}

// Normalize lowercases the kind and applies the original default.
func (k Kind) Normalize() Kind {
	normalized := Kind(strings.ToLower(strings.TrimSpace(string(k))))
	if normalized == "" {
		return KindOriginal
	}
	return normalized
}

// Article is the only persisted entity.
type Article struct {
	ID                int64     `json:"id"`                            // Surrogate key assigned by the store
	Title             string    `json:"title"`                         // Article title
	Content           string    `json:"content"`                       // Readable text (or generated markdown)
	SourceURL         string    `json:"source_url"`                    // Natural key, unique across the store
	Kind              Kind      `json:"type"`                          // original or generated
	OriginalArticleID *int64    `json:"original_article_id,omitempty"` // Set only for generated articles
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks required fields and the generated/back-reference pairing.
func (a *Article) Validate() error {
	var problems []string
	if strings.TrimSpace(a.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(a.Content) == "" {
		problems = append(problems, "content is required")
	}
	if strings.TrimSpace(a.SourceURL) == "" {
		problems = append(problems, "source_url is required")
	}

	switch a.Kind.Normalize() {
	case KindOriginal:
		if a.OriginalArticleID != nil {
			problems = append(problems, "original articles cannot reference another article")
		}
	case KindGenerated:
		if a.OriginalArticleID == nil {
			problems = append(problems, "generated articles require original_article_id")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown article type %q", a.Kind))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArticle, strings.Join(problems, "; "))
	}
	return nil
}

// ReferenceResult is a single search hit produced by discovery.
type ReferenceResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ReferenceArticle is a discovered page whose readable text was collected.
type ReferenceArticle struct {
	Source  string `json:"source"` // URL the content was read from
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}

// Float32Ptr returns a pointer to v.
func Float32Ptr(v float32) *float32 {
	return &v
}
