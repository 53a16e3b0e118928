// Package enhance turns one original article into a persisted, AI-rewritten article
// plus the list of references that inspired it.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"enhancer/internal/core"
	"enhancer/internal/logger"
	"enhancer/internal/persistence"

	"github.com/google/uuid"
)

// State is a step of one enhancement run.
type State string

const (
	StateValidating  State = "validating"
	StateDiscovering State = "discovering"
	StateCollecting  State = "collecting"
	StateGenerating  State = "generating"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// TitleSuffix marks generated article titles.
const TitleSuffix = " (AI Enhanced)"

// Discoverer finds reference candidates for a topic.
type Discoverer interface {
	Discover(ctx context.Context, topic string) ([]core.ReferenceResult, error)
}

// Collector reads the content of reference candidates.
type Collector interface {
	Collect(ctx context.Context, results []core.ReferenceResult) ([]core.ReferenceArticle, error)
}

// Rewriter produces the enhanced body.
type Rewriter interface {
	Rewrite(ctx context.Context, original core.Article, refs []core.ReferenceArticle) (string, error)
}

// Run records how one enhancement went. State is StateDone on success and
// StateFailed otherwise; FailedAt names the step that failed.
type Run struct {
	OriginalID int64
	State      State
	FailedAt   State
	References []core.ReferenceArticle
	Generated  *core.Article
	Duration   time.Duration
}

// Service sequences discovery, collection, generation and persistence.
type Service struct {
	store      persistence.ArticleStore
	discoverer Discoverer
	collector  Collector
	rewriter   Rewriter
	log        *slog.Logger
	token      func() string
}

// NewService wires the pipeline stages around an article store.
func NewService(store persistence.ArticleStore, discoverer Discoverer, collector Collector, rewriter Rewriter) *Service {
	return &Service{
		store:      store,
		discoverer: discoverer,
		collector:  collector,
		rewriter:   rewriter,
		log:        logger.With("component", "enhance"),
		token:      uniqueToken,
	}
}

// EnhanceByID loads an article and enhances it. Absent articles fail with core.ErrNotFound.
func (s *Service) EnhanceByID(ctx context.Context, id int64) (*core.Article, error) {
	run := &Run{OriginalID: id}
	s.transition(run, StateValidating)

	original, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(run, err)
	}
	return s.run(ctx, run, original)
}

// Enhance enhances an article already in hand.
func (s *Service) Enhance(ctx context.Context, original *core.Article) (*core.Article, error) {
	run := &Run{}
	s.transition(run, StateValidating)
	if original == nil {
		return nil, s.fail(run, core.ErrNotFound)
	}
	run.OriginalID = original.ID
	return s.run(ctx, run, original)
}

// EnhanceRandom picks a random stored original and enhances it.
func (s *Service) EnhanceRandom(ctx context.Context) (*core.Article, error) {
	originals, err := s.store.List(ctx, persistence.ListOptions{Kind: core.KindOriginal})
	if err != nil {
		return nil, fmt.Errorf("failed to list original articles: %w", err)
	}
	if len(originals) == 0 {
		return nil, fmt.Errorf("%w: no original articles available", core.ErrNotFound)
	}
	picked := originals[rand.IntN(len(originals))]
	return s.Enhance(ctx, &picked)
}

// Execute runs the pipeline for an article in hand and returns the full run record.
func (s *Service) Execute(ctx context.Context, original *core.Article) (*Run, error) {
	run := &Run{}
	s.transition(run, StateValidating)
	if original == nil {
		return run, s.fail(run, core.ErrNotFound)
	}
	run.OriginalID = original.ID
	_, err := s.run(ctx, run, original)
	return run, err
}

func (s *Service) run(ctx context.Context, run *Run, original *core.Article) (*core.Article, error) {
	start := time.Now()
	defer func() { run.Duration = time.Since(start) }()

	if !original.Kind.IsOriginal() {
		return nil, s.fail(run, fmt.Errorf("%w: article %d has type %q", core.ErrNotOriginal, original.ID, original.Kind))
	}

	s.transition(run, StateDiscovering)
	results, err := s.discoverer.Discover(ctx, original.Title)
	if err != nil {
		return nil, s.fail(run, err)
	}

	s.transition(run, StateCollecting)
	refs, err := s.collector.Collect(ctx, results)
	if err != nil {
		return nil, s.fail(run, err)
	}
	run.References = refs

	s.transition(run, StateGenerating)
	content, err := s.rewriter.Rewrite(ctx, *original, refs)
	if err != nil {
		return nil, s.fail(run, err)
	}

	s.transition(run, StatePersisting)
	generated := &core.Article{
		Title:             original.Title + TitleSuffix,
		Content:           content,
		SourceURL:         GeneratedSourceURL(original.SourceURL, s.token()),
		Kind:              core.KindGenerated,
		OriginalArticleID: core.Int64Ptr(original.ID),
	}
	if err := s.store.Create(ctx, generated); err != nil {
		return nil, s.fail(run, fmt.Errorf("failed to save generated article: %w", err))
	}
	run.Generated = generated

	s.transition(run, StateDone)
	s.log.Info("Article enhanced",
		"original_id", original.ID,
		"generated_id", generated.ID,
		"references", len(refs),
		"duration", time.Since(start))
	return generated, nil
}

func (s *Service) transition(run *Run, next State) {
	run.State = next
	s.log.Debug("Enhancement state changed", "article_id", run.OriginalID, "state", next)
}

// fail records the failing step and returns err unchanged.
func (s *Service) fail(run *Run, err error) error {
	run.FailedAt = run.State
	run.State = StateFailed
	s.log.Warn("Enhancement failed", "article_id", run.OriginalID, "step", run.FailedAt, "error", err.Error())
	return err
}

// GeneratedSourceURL derives the unique source URL of a generated article.
func GeneratedSourceURL(originalURL, token string) string {
	return originalURL + "#generated-" + token
}

// uniqueToken combines the wall clock in milliseconds with random uuid bits.
func uniqueToken() string {
	id := uuid.New()
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strings.ReplaceAll(id.String(), "-", "")[:8]
}
