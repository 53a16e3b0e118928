package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"enhancer/internal/core"
	"enhancer/internal/enhance"

	"github.com/spf13/cobra"
)

// NewEnhanceCmd creates the enhance command
func NewEnhanceCmd() *cobra.Command {
	var random bool

	cmd := &cobra.Command{
		Use:   "enhance [article-id]",
		Short: "Generate a reference-backed rewrite of an original article",
		Long: `Run the enhancement pipeline for one stored original article:

  1. Search the web for the article title
  2. Scrape the top reference articles
  3. Ask the language model for a rewrite inspired by them
  4. Store the rewrite as a generated article linked to the original

Requires search and model credentials (SERPER_API_KEY and GEMINI_API_KEY by default).

Examples:
  enhancer enhance 42
  enhancer enhance --random`,
		Args: func(cmd *cobra.Command, args []string) error {
			if random && len(args) > 0 {
				return errors.New("pass either an article id or --random, not both")
			}
			if !random && len(args) != 1 {
				return errors.New("an article id is required (or use --random)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if !random {
				parsed, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || parsed <= 0 {
					return fmt.Errorf("invalid article id %q", args[0])
				}
				id = parsed
			}
			return runEnhance(cmd.Context(), id, random)
		},
	}

	cmd.Flags().BoolVar(&random, "random", false, "Enhance a randomly chosen original article")

	return cmd
}

func runEnhance(ctx context.Context, id int64, random bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, c, err := loadComponents()
	if err != nil {
		return err
	}
	defer c.Close()

	if !cfg.Enhance.Enabled {
		return fmt.Errorf("%w: enhancement is disabled (enhance.enabled: false)", core.ErrConfiguration)
	}

	service, err := buildService(ctx, cfg, c)
	if err != nil {
		return err
	}

	if random {
		generated, err := service.EnhanceRandom(ctx)
		if err != nil {
			return err
		}
		printGenerated(generated)
		return nil
	}

	original, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("🔎 Enhancing #%d %s\n", original.ID, original.Title)
	run, err := service.Execute(ctx, original)
	if err != nil {
		if run != nil && run.State == enhance.StateFailed {
			return fmt.Errorf("enhancement failed while %s: %w", run.FailedAt, err)
		}
		return err
	}

	fmt.Printf("📚 Used %d reference(s) in %s\n", len(run.References), run.Duration.Round(time.Millisecond))
	for _, ref := range run.References {
		fmt.Printf("   • %s\n", ref.Source)
	}
	printGenerated(run.Generated)
	return nil
}

func printGenerated(a *core.Article) {
	fmt.Printf("✅ Stored generated article #%d: %s\n", a.ID, a.Title)
	if a.OriginalArticleID != nil {
		fmt.Printf("   original: #%d\n", *a.OriginalArticleID)
	}
	fmt.Printf("   source_url: %s\n", a.SourceURL)
}
