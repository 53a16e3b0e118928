package handlers

import (
	"context"
	"fmt"

	"enhancer/internal/crawler"
	"enhancer/internal/logger"

	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command
func NewCrawlCmd() *cobra.Command {
	var (
		limit  int
		url    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Store the latest articles from the listing page",
		Long: `Crawl the configured listing page (an HTML blog index or an RSS/Atom feed),
extract each linked article and upsert it as an original article.

Re-crawling a URL updates the stored row in place. Articles whose page cannot
be extracted are stored with their listing teaser instead.

Examples:
  enhancer crawl
  enhancer crawl --limit 10
  enhancer crawl --url https://example.com/blog/feed.xml --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), limit, url, dryRun)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of articles to crawl (default from config: 5)")
	cmd.Flags().StringVar(&url, "url", "", "Listing page URL (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would be stored without writing")

	return cmd
}

func runCrawl(ctx context.Context, limit int, url string, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, c, err := loadComponents()
	if err != nil {
		return err
	}
	defer c.Close()

	if limit <= 0 {
		limit = cfg.Crawler.Limit
	}

	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	crawl := buildCrawler(cfg, c, url)
	logger.Info("Crawling listing page", "url", crawl.ListingURL(), "limit", limit)

	if dryRun {
		outcomes, err := crawl.CrawlOutcomes(ctx, limit)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			marker := "✅"
			if o.Status == crawler.StatusDegraded {
				marker = "⚠️ "
			}
			fmt.Printf("%s %s\n   %s (%d chars)\n", marker, o.Article.Title, o.Article.SourceURL, len([]rune(o.Article.Content)))
			if o.Reason != "" {
				fmt.Printf("   %s\n", o.Reason)
			}
		}
		return nil
	}

	saved, err := crawl.Seed(ctx, c.store, limit)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Printf("✅ Stored %d article(s)\n", len(saved))
	for _, a := range saved {
		fmt.Printf("  #%-5d %s\n", a.ID, a.Title)
	}
	return nil
}
