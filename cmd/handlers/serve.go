package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enhancer/internal/logger"
	"enhancer/internal/scheduler"
	"enhancer/internal/server"

	"github.com/spf13/cobra"
)

const seedTimeout = 2 * time.Minute

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		noSeed bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the article API server.

The server provides:
  • CRUD endpoints for articles under /articles
  • POST /articles/{id}/enhance to run the enhancement pipeline
  • POST /articles/crawl to pull the latest posts from the listing page
  • GET /health for liveness checks

When the store holds no original articles the listing page is crawled once at
startup (disable with --no-seed or crawler.seed_on_start: false). With
scheduler.enabled the crawl also repeats on scheduler.crawl_cron.

Examples:
  # Start server on default port 3000
  enhancer serve

  # Start on custom port without the startup crawl
  enhancer serve --port 8080 --no-seed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, noSeed)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 3000)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Skip the startup crawl")

	return cmd
}

func runServe(ctx context.Context, port int, host string, noSeed bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Get()
	log.Info("Starting HTTP server")

	cfg, c, err := loadComponents()
	if err != nil {
		return err
	}
	defer c.Close()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w\n\n"+
			"Make sure PostgreSQL is running and the connection string is correct.\n"+
			"Run 'enhancer migrate up' to initialize the database schema.", err)
	}
	log.Info("Database connection successful")

	crawl := buildCrawler(cfg, c, "")
	deps := server.Deps{
		Store:             c.store,
		Seeder:            crawl,
		EnhanceEnabled:    cfg.Enhance.Enabled,
		DefaultCrawlLimit: cfg.Crawler.Limit,
	}

	if cfg.Enhance.Enabled {
		service, err := buildService(ctx, cfg, c)
		if err != nil {
			// The rest of the API stays up; enhance requests answer 503.
			logger.Error("Enhancement unavailable", err)
			deps.UnavailableReason = err.Error()
		} else {
			deps.Enhancer = service
		}
	} else {
		deps.UnavailableReason = "enhancement is disabled (enhance.enabled: false)"
	}

	if cfg.Crawler.SeedOnStart && !noSeed {
		go func() {
			seedCtx, cancel := context.WithTimeout(context.Background(), seedTimeout)
			defer cancel()
			saved, err := crawl.SeedIfEmpty(seedCtx, c.store, cfg.Crawler.Limit)
			if err != nil {
				logger.Error("Startup crawl failed", err, "listing_url", cfg.Crawler.ListingURL)
				return
			}
			if saved != nil {
				log.Info("Startup crawl stored originals", "count", len(saved))
			}
		}()
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(seedTimeout)
		err := sched.AddJob("crawl", cfg.Scheduler.CrawlCron, func(ctx context.Context) error {
			_, err := crawl.Seed(ctx, c.store, cfg.Crawler.Limit)
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
	}

	srv := server.New(deps, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if sched != nil {
			sched.Stop(shutdownCtx)
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed, forcing close", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
