package handlers

import (
	"context"
	"fmt"
	"strings"

	"enhancer/internal/cache"
	"enhancer/internal/config"
	"enhancer/internal/core"
	"enhancer/internal/crawler"
	"enhancer/internal/enhance"
	"enhancer/internal/fetch"
	"enhancer/internal/llm"
	"enhancer/internal/logger"
	"enhancer/internal/persistence"
	"enhancer/internal/references"
	"enhancer/internal/search"
)

// urlExtractor is satisfied by fetch.Extractor and cache.CachedExtractor
type urlExtractor interface {
	ExtractURL(ctx context.Context, rawURL string) (string, error)
}

// components bundles everything the commands build from configuration
type components struct {
	store     persistence.ArticleStore
	fetcher   *fetch.Fetcher
	extractor urlExtractor
	cache     *cache.RedisCache
}

func (c *components) Close() {
	if c.cache != nil {
		_ = c.cache.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

// loadComponents connects to the database and builds the fetch/extract stack.
func loadComponents() (*config.Config, *components, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	c := &components{store: store}
	c.fetcher = buildFetcher(cfg)
	c.extractor, c.cache = buildExtractor(cfg, c.fetcher)
	return cfg, c, nil
}

// getStore opens the PostgreSQL article store
func getStore(cfg *config.Config) (*persistence.PostgresStore, error) {
	connStr, err := cfg.DatabaseURL()
	if err != nil {
		return nil, err
	}

	store, err := persistence.NewPostgresStore(connStr, persistence.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w\n\n"+
			"Make sure PostgreSQL is running and the connection string is correct.\n"+
			"Run 'enhancer migrate up' to initialize the database schema.", err)
	}
	return store, nil
}

func buildFetcher(cfg *config.Config) *fetch.Fetcher {
	return fetch.NewFetcher(fetch.FetcherOptions{
		UserAgent:    cfg.Extractor.UserAgent,
		Timeout:      cfg.Extractor.Timeout,
		MaxRedirects: cfg.Extractor.MaxRedirects,
	})
}

// buildExtractor returns the readable-text extractor, fronted by Redis when the cache
// is enabled and reachable. An unreachable cache is logged and skipped.
func buildExtractor(cfg *config.Config, fetcher *fetch.Fetcher) (urlExtractor, *cache.RedisCache) {
	extractor := fetch.NewExtractor(fetcher, cfg.Extractor.MaxContentChars)
	if !cfg.Cache.Enabled {
		return extractor, nil
	}

	redisCache, err := cache.NewRedisCache(cache.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		TTL:      cfg.Cache.TTL,
	})
	if err != nil {
		logger.Warn("Extraction cache unavailable, continuing without it", "addr", cfg.Cache.RedisAddr, "error", err.Error())
		return extractor, nil
	}

	logger.Info("Extraction cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	return cache.NewCachedExtractor(extractor, redisCache), redisCache
}

// buildCrawler reads the listing page with its own timeout; articles are hydrated
// through the shared extractor.
func buildCrawler(cfg *config.Config, c *components, listingURL string) *crawler.Crawler {
	if listingURL == "" {
		listingURL = cfg.Crawler.ListingURL
	}
	listingFetcher := fetch.NewFetcher(fetch.FetcherOptions{
		UserAgent:    cfg.Extractor.UserAgent,
		Timeout:      cfg.Crawler.Timeout,
		MaxRedirects: cfg.Extractor.MaxRedirects,
	})
	return crawler.New(listingURL, listingFetcher, c.extractor)
}

// buildService wires search, collection and generation into an enhancement service.
// Missing credentials fail with core.ErrConfiguration before any client is created.
func buildService(ctx context.Context, cfg *config.Config, c *components) (*enhance.Service, error) {
	if err := cfg.EnhancementCredentials(); err != nil {
		return nil, err
	}

	providerCfg := cfg.SearchProviderConfig()
	providerCfg["timeout"] = cfg.Search.Timeout.String()
	provider, err := search.NewProviderFactory().CreateProvider(search.ProviderType(strings.ToLower(cfg.Search.Provider)), providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s search provider: %w", cfg.Search.Provider, err)
	}

	generator, err := llm.NewGenerator(ctx, generatorConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.AI.Provider, err)
	}

	discoverer := references.NewDiscoverer(provider, references.DiscovererOptions{
		MaxResults:     cfg.Search.MaxResults,
		TopN:           cfg.References.TopN,
		BlockedDomains: cfg.References.BlockedDomains,
	})
	collector := references.NewCollector(c.extractor, references.CollectorOptions{
		Concurrency:       cfg.References.Concurrency,
		MaxReferenceChars: cfg.References.MaxReferenceChars,
	})
	rewriter := llm.NewRewriter(generator, llm.RewriterOptions{
		MaxOriginalChars: cfg.Enhance.MaxOriginalChars,
		Temperature:      core.Float32Ptr(cfg.AI.Temperature),
		MaxTokens:        cfg.AI.MaxTokens,
	})

	logger.Debug("Enhancement service ready",
		"search_provider", provider.GetName(),
		"generator", generator.Name(),
		"top_n", cfg.References.TopN)

	return enhance.NewService(c.store, discoverer, collector, rewriter), nil
}

func generatorConfig(cfg *config.Config) llm.Config {
	gc := llm.Config{Provider: cfg.AI.Provider, Timeout: cfg.AI.Timeout}
	switch strings.ToLower(cfg.AI.Provider) {
	case llm.ProviderCohere:
		gc.APIKey, gc.Model = cfg.AI.Cohere.APIKey, cfg.AI.Cohere.Model
	default:
		gc.APIKey, gc.Model = cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model
	}
	return gc
}
