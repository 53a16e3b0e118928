package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"enhancer/internal/config"
	"enhancer/internal/core"
	"enhancer/internal/persistence"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	generatedStyle = cellStyle.Foreground(lipgloss.Color("10"))
	titleStyle     = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	metaStyle      = lipgloss.NewStyle().Faint(true)
)

// NewArticlesCmd creates the articles command group
func NewArticlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article"},
		Short:   "Inspect stored articles",
	}

	cmd.AddCommand(newArticlesListCmd())
	cmd.AddCommand(newArticlesShowCmd())
	cmd.AddCommand(newArticlesDeleteCmd())

	return cmd
}

func newArticlesListCmd() *cobra.Command {
	var (
		kind   string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles newest first",
		Example: `  enhancer articles list
  enhancer articles list --type generated --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store persistence.ArticleStore) error {
				articles, err := store.List(ctx, persistence.ListOptions{
					Kind:   core.Kind(strings.ToLower(kind)),
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				if len(articles) == 0 {
					fmt.Println("No articles found")
					return nil
				}
				fmt.Println(renderArticleTable(articles))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Filter by type (original or generated)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of articles (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of articles to skip")

	return cmd
}

func newArticlesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <article-id>",
		Short: "Print one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, store persistence.ArticleStore) error {
				article, err := store.Get(ctx, id)
				if err != nil {
					return err
				}
				fmt.Println(renderArticle(article))
				return nil
			})
		},
	}
}

func newArticlesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <article-id>",
		Short: "Delete an article and anything generated from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, store persistence.ArticleStore) error {
				if err := store.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Printf("🗑️  Deleted article #%d\n", id)
				return nil
			})
		},
	}
}

// withStore opens the configured store for the duration of fn
func withStore(ctx context.Context, fn func(context.Context, persistence.ArticleStore) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := getStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func parseArticleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid article id %q", raw)
	}
	return id, nil
}

func renderArticleTable(articles []core.Article) string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		parent := "-"
		if a.OriginalArticleID != nil {
			parent = strconv.FormatInt(*a.OriginalArticleID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			string(a.Kind),
			parent,
			truncate(a.Title, 60),
			a.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("ID", "TYPE", "ORIGINAL", "TITLE", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && rows[row][1] == string(core.KindGenerated):
				return generatedStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func renderArticle(a *core.Article) string {
	meta := fmt.Sprintf("#%d · %s · %s", a.ID, a.Kind, a.SourceURL)
	if a.OriginalArticleID != nil {
		meta += fmt.Sprintf(" · from #%d", *a.OriginalArticleID)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(a.Title),
		metaStyle.Render(meta),
		"",
		a.Content,
	)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
