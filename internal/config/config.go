package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"enhancer/internal/core"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Logging    Logging    `mapstructure:"logging"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Cache      Cache      `mapstructure:"cache"`
	Search     Search     `mapstructure:"search"`
	AI         AI         `mapstructure:"ai"`
	Extractor  Extractor  `mapstructure:"extractor"`
	References References `mapstructure:"references"`
	Enhance    Enhance    `mapstructure:"enhance"`
	Crawler    Crawler    `mapstructure:"crawler"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CORS            CORS          `mapstructure:"cors"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
}

// CORS holds cross-origin settings for the HTTP server
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimit caps concurrent in-flight requests
type RateLimit struct {
	Enabled bool `mapstructure:"enabled"`
	Limit   int  `mapstructure:"limit"`
}

// Database holds record store configuration
type Database struct {
	ConnectionString string        `mapstructure:"connection_string"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
}

// Cache holds the optional Redis cache for extracted page text
type Cache struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// Search holds search provider configuration
type Search struct {
	Provider   string          `mapstructure:"provider"`
	MaxResults int             `mapstructure:"max_results"`
	Timeout    time.Duration   `mapstructure:"timeout"`
	Providers  SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds credentials for each search provider
type SearchProviders struct {
	Serper  APIKeyConfig `mapstructure:"serper"`
	SerpAPI APIKeyConfig `mapstructure:"serpapi"`
	Google  GoogleCSE    `mapstructure:"google"`
}

// APIKeyConfig holds a single credential
type APIKeyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// GoogleCSE holds Google Custom Search credentials
type GoogleCSE struct {
	APIKey         string `mapstructure:"api_key"`
	SearchEngineID string `mapstructure:"search_engine_id"`
}

// AI holds generation backend configuration
type AI struct {
	Provider    string        `mapstructure:"provider"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int32         `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Gemini      ModelConfig   `mapstructure:"gemini"`
	Cohere      ModelConfig   `mapstructure:"cohere"`
}

// ModelConfig holds a provider credential and model name
type ModelConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Extractor holds page fetching and extraction limits
type Extractor struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRedirects    int           `mapstructure:"max_redirects"`
	MaxContentChars int           `mapstructure:"max_content_chars"`
}

// References holds discovery and collection settings
type References struct {
	TopN              int      `mapstructure:"top_n"`
	MaxReferenceChars int      `mapstructure:"max_reference_chars"`
	Concurrency       int      `mapstructure:"concurrency"`
	BlockedDomains    []string `mapstructure:"blocked_domains"`
}

// Enhance holds orchestrator settings
type Enhance struct {
	Enabled          bool `mapstructure:"enabled"`
	MaxOriginalChars int  `mapstructure:"max_original_chars"`
}

// Crawler holds listing-page crawl settings
type Crawler struct {
	ListingURL  string        `mapstructure:"listing_url"`
	Limit       int           `mapstructure:"limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SeedOnStart bool          `mapstructure:"seed_on_start"`
}

// Scheduler holds periodic crawl settings
type Scheduler struct {
	Enabled   bool   `mapstructure:"enabled"`
	CrawlCron string `mapstructure:"crawl_cron"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".enhancer")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	postProcessConfig(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.request_timeout", "110s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.rate_limit.enabled", false)
	viper.SetDefault("server.rate_limit.limit", 100)

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", "10s")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.max_tokens", 2000)
	viper.SetDefault("ai.timeout", "90s")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.cohere.model", "command-r-plus")

	viper.SetDefault("extractor.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	viper.SetDefault("extractor.timeout", "8s")
	viper.SetDefault("extractor.max_redirects", 5)
	viper.SetDefault("extractor.max_content_chars", 100000)

	viper.SetDefault("references.top_n", 2)
	viper.SetDefault("references.max_reference_chars", 3000)
	viper.SetDefault("references.concurrency", 4)
	viper.SetDefault("references.blocked_domains", []string{"youtube.com", "instagram.com", "twitter.com", "facebook.com"})

	viper.SetDefault("enhance.enabled", true)
	viper.SetDefault("enhance.max_original_chars", 2000)

	viper.SetDefault("crawler.listing_url", "https://beyondchats.com/blogs/")
	viper.SetDefault("crawler.limit", 5)
	viper.SetDefault("crawler.timeout", "10s")
	viper.SetDefault("crawler.seed_on_start", true)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.crawl_cron", "0 0 */6 * * *")
}

// bindEnvironmentVariables maps the conventional env names onto viper keys
func bindEnvironmentVariables() {
	bindEnvKeys("database.connection_string", []string{"DATABASE_URL", "POSTGRES_URL"})
	bindEnvKeys("server.port", []string{"PORT"})

	bindEnvKeys("search.provider", []string{"SEARCH_PROVIDER"})
	bindEnvKeys("search.providers.serper.api_key", []string{"SERPER_API_KEY"})
	bindEnvKeys("search.providers.serpapi.api_key", []string{"SERPAPI_API_KEY", "SERPAPI_KEY"})
	bindEnvKeys("search.providers.google.api_key", []string{"GOOGLE_CSE_API_KEY", "GOOGLE_SEARCH_API_KEY"})
	bindEnvKeys("search.providers.google.search_engine_id", []string{"GOOGLE_CSE_ID", "GOOGLE_SEARCH_ENGINE_ID"})

	bindEnvKeys("ai.provider", []string{"LLM_PROVIDER"})
	bindEnvKeys("ai.temperature", []string{"LLM_TEMPERATURE"})
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})
	bindEnvKeys("ai.cohere.api_key", []string{"COHERE_API_KEY", "CO_API_KEY"})

	// LLM_MODEL applies to whichever provider is selected
	if model := os.Getenv("LLM_MODEL"); model != "" {
		provider := viper.GetString("ai.provider")
		if provider == "" {
			provider = "gemini"
		}
		viper.Set("ai."+provider+".model", model)
	}

	bindEnvKeys("cache.enabled", []string{"CACHE_ENABLED"})
	bindEnvKeys("cache.redis_addr", []string{"REDIS_ADDR"})
	bindEnvKeys("cache.redis_password", []string{"REDIS_PASSWORD"})
	bindEnvKeys("cache.redis_db", []string{"REDIS_DB"})

	bindEnvKeys("enhance.enabled", []string{"ENABLE_ENHANCE"})
	bindEnvKeys("crawler.listing_url", []string{"SCRAPER_URL"})
	bindEnvKeys("scheduler.crawl_cron", []string{"CRAWL_CRON"})

	bindEnvKeys("app.debug", []string{"DEBUG", "ENHANCER_DEBUG"})
	bindEnvKeys("logging.level", []string{"LOG_LEVEL"})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

func postProcessConfig(config *Config) {
	config.Search.Provider = strings.ToLower(strings.TrimSpace(config.Search.Provider))
	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	blocked := config.References.BlockedDomains[:0]
	for _, domain := range config.References.BlockedDomains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			blocked = append(blocked, d)
		}
	}
	config.References.BlockedDomains = blocked
}

// validateConfig checks structural settings. Credentials are checked lazily by
// EnhancementCredentials so that commands like migrate run without them.
func validateConfig(config *Config) error {
	var errors []string

	switch config.Search.Provider {
	case "serper", "serpapi", "google", "duckduckgo", "mock":
	default:
		errors = append(errors, fmt.Sprintf("Unknown search provider: %s. Supported: serper, serpapi, google, duckduckgo, mock", config.Search.Provider))
	}

	switch config.AI.Provider {
	case "gemini", "cohere", "stub":
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI provider: %s. Supported: gemini, cohere, stub", config.AI.Provider))
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 1 and 65535, got %d", config.Server.Port))
	}

	durations := map[string]time.Duration{
		"server.read_timeout":     config.Server.ReadTimeout,
		"server.write_timeout":    config.Server.WriteTimeout,
		"server.shutdown_timeout": config.Server.ShutdownTimeout,
		"server.request_timeout":  config.Server.RequestTimeout,
		"search.timeout":          config.Search.Timeout,
		"ai.timeout":              config.AI.Timeout,
		"extractor.timeout":       config.Extractor.Timeout,
		"crawler.timeout":         config.Crawler.Timeout,
	}
	for key, d := range durations {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be a positive duration", key))
		}
	}

	positives := map[string]int{
		"search.max_results":             config.Search.MaxResults,
		"extractor.max_content_chars":    config.Extractor.MaxContentChars,
		"references.top_n":               config.References.TopN,
		"references.max_reference_chars": config.References.MaxReferenceChars,
		"references.concurrency":         config.References.Concurrency,
		"enhance.max_original_chars":     config.Enhance.MaxOriginalChars,
		"crawler.limit":                  config.Crawler.Limit,
	}
	for key, v := range positives {
		if v <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be greater than zero", key))
		}
	}

	if config.AI.Temperature < 0 || config.AI.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("ai.temperature must be between 0 and 2, got %v", config.AI.Temperature))
	}
	if config.AI.MaxTokens <= 0 {
		errors = append(errors, "ai.max_tokens must be greater than zero")
	}
	if config.Extractor.MaxRedirects < 0 {
		errors = append(errors, "extractor.max_redirects cannot be negative")
	}
	if config.Cache.Enabled && config.Cache.RedisAddr == "" {
		errors = append(errors, "cache.redis_addr is required when the cache is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// EnhancementCredentials reports missing credentials for the selected search and
// generation providers. The returned error wraps core.ErrConfiguration.
func (c *Config) EnhancementCredentials() error {
	var missing []string

	switch c.Search.Provider {
	case "serper":
		if !isValidAPIKey(c.Search.Providers.Serper.APIKey) {
			missing = append(missing, "Serper requires an API key. Set SERPER_API_KEY environment variable")
		}
	case "serpapi":
		if !isValidAPIKey(c.Search.Providers.SerpAPI.APIKey) {
			missing = append(missing, "SerpAPI requires an API key. Set SERPAPI_API_KEY environment variable")
		}
	case "google":
		if !isValidAPIKey(c.Search.Providers.Google.APIKey) {
			missing = append(missing, "Google Custom Search requires an API key. Set GOOGLE_CSE_API_KEY environment variable")
		}
		if c.Search.Providers.Google.SearchEngineID == "" {
			missing = append(missing, "Google Custom Search requires a search engine ID. Set GOOGLE_CSE_ID environment variable")
		}
	}

	switch c.AI.Provider {
	case "gemini":
		if !isValidAPIKey(c.AI.Gemini.APIKey) {
			missing = append(missing, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
		}
	case "cohere":
		if !isValidAPIKey(c.AI.Cohere.APIKey) {
			missing = append(missing, "Cohere API key is required. Set COHERE_API_KEY environment variable or ai.cohere.api_key in config file")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w:\n- %s", core.ErrConfiguration, strings.Join(missing, "\n- "))
	}
	return nil
}

// SearchProviderConfig returns the factory settings for the selected search provider
func (c *Config) SearchProviderConfig() map[string]string {
	switch c.Search.Provider {
	case "serper":
		return map[string]string{"api_key": c.Search.Providers.Serper.APIKey}
	case "serpapi":
		return map[string]string{"api_key": c.Search.Providers.SerpAPI.APIKey}
	case "google":
		return map[string]string{
			"api_key":          c.Search.Providers.Google.APIKey,
			"search_engine_id": c.Search.Providers.Google.SearchEngineID,
		}
	case "duckduckgo":
		return map[string]string{"user_agent": c.Extractor.UserAgent}
	default:
		return map[string]string{}
	}
}

// DatabaseURL returns the configured connection string or a descriptive error
func (c *Config) DatabaseURL() (string, error) {
	if c.Database.ConnectionString == "" {
		return "", fmt.Errorf("%w: database connection string not configured (set database.connection_string in config or DATABASE_URL env var)", core.ErrConfiguration)
	}
	return c.Database.ConnectionString, nil
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-serper-key", "your-gemini-key", "your-cohere-key",
		"YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}
	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
