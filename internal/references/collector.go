package references

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"enhancer/internal/core"
	"enhancer/internal/logger"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency       = 4
	DefaultMaxReferenceChars = 3000
)

// URLExtractor returns the readable text of a page.
type URLExtractor interface {
	ExtractURL(ctx context.Context, rawURL string) (string, error)
}

// Status describes what happened to one candidate reference.
type Status string

const (
	StatusCollected Status = "collected"
	StatusSkipped   Status = "skipped"
)

// Outcome is the per-candidate result of a collection batch. Article is set only
// when Status is StatusCollected; Reason only when it is StatusSkipped.
type Outcome struct {
	Result  core.ReferenceResult
	Article *core.ReferenceArticle
	Status  Status
	Reason  string
}

// CollectorOptions tunes the fan-out.
type CollectorOptions struct {
	Concurrency       int
	MaxReferenceChars int
}

// Collector fetches and extracts each discovered reference.
type Collector struct {
	extractor URLExtractor
	opts      CollectorOptions
	log       *slog.Logger
}

// NewCollector creates a collector backed by extractor.
func NewCollector(extractor URLExtractor, opts CollectorOptions) *Collector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxReferenceChars <= 0 {
		opts.MaxReferenceChars = DefaultMaxReferenceChars
	}
	return &Collector{
		extractor: extractor,
		opts:      opts,
		log:       logger.With("component", "collector"),
	}
}

// CollectOutcomes extracts every candidate concurrently and returns one Outcome per
// input, in input order. Individual failures become skipped outcomes; only context
// cancellation is returned as an error.
func (c *Collector) CollectOutcomes(ctx context.Context, results []core.ReferenceResult) ([]Outcome, error) {
	outcomes := make([]Outcome, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, result := range results {
		g.Go(func() error {
			outcomes[i] = c.collectOne(gctx, result)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// Collect returns the successfully extracted references in input order. It fails
// with core.ErrNoContentCollected when every candidate was skipped.
func (c *Collector) Collect(ctx context.Context, results []core.ReferenceResult) ([]core.ReferenceArticle, error) {
	outcomes, err := c.CollectOutcomes(ctx, results)
	if err != nil {
		return nil, err
	}

	articles := make([]core.ReferenceArticle, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == StatusCollected {
			articles = append(articles, *o.Article)
		}
	}

	c.log.Info("Reference collection completed", "candidates", len(results), "collected", len(articles))

	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: all %d candidates failed", core.ErrNoContentCollected, len(results))
	}
	return articles, nil
}

func (c *Collector) collectOne(ctx context.Context, result core.ReferenceResult) Outcome {
	outcome := Outcome{Result: result, Status: StatusSkipped}

	text, err := c.extractor.ExtractURL(ctx, result.URL)
	if err != nil {
		outcome.Reason = err.Error()
		if errors.Is(err, context.Canceled) {
			outcome.Reason = "cancelled"
		}
		c.log.Warn("Skipping reference", "url", result.URL, "reason", outcome.Reason)
		return outcome
	}

	text = strings.TrimSpace(text)
	if text == "" {
		outcome.Reason = "empty content"
		c.log.Warn("Skipping reference", "url", result.URL, "reason", outcome.Reason)
		return outcome
	}

	if utf8.RuneCountInString(text) > c.opts.MaxReferenceChars {
		text = string([]rune(text)[:c.opts.MaxReferenceChars])
	}

	outcome.Status = StatusCollected
	outcome.Article = &core.ReferenceArticle{
		Source:  result.URL,
		Title:   result.Title,
		Content: text,
	}
	return outcome
}
