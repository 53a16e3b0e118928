package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"enhancer/internal/core"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "POSTGRES_URL", "PORT", "SEARCH_PROVIDER", "SERPER_API_KEY",
		"SERPAPI_API_KEY", "SERPAPI_KEY", "LLM_PROVIDER", "LLM_MODEL", "GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "COHERE_API_KEY", "CO_API_KEY",
		"ENABLE_ENHANCE", "SCRAPER_URL", "REDIS_ADDR", "CACHE_ENABLED", "DEBUG", "LOG_LEVEL",
		"GOOGLE_CSE_API_KEY", "GOOGLE_SEARCH_API_KEY", "GOOGLE_CSE_ID", "GOOGLE_SEARCH_ENGINE_ID",
		"LLM_TEMPERATURE",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	Reset()
	t.Cleanup(Reset)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Search.Provider != "serper" {
		t.Errorf("Expected default search provider serper, got %s", cfg.Search.Provider)
	}
	if cfg.Search.MaxResults != 10 {
		t.Errorf("Expected max results 10, got %d", cfg.Search.MaxResults)
	}
	if cfg.References.TopN != 2 {
		t.Errorf("Expected top_n 2, got %d", cfg.References.TopN)
	}
	if cfg.Extractor.MaxContentChars != 100000 {
		t.Errorf("Expected max content chars 100000, got %d", cfg.Extractor.MaxContentChars)
	}
	if cfg.Extractor.Timeout != 8*time.Second {
		t.Errorf("Expected extractor timeout 8s, got %v", cfg.Extractor.Timeout)
	}
	if cfg.AI.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.MaxTokens != 2000 {
		t.Errorf("Expected max tokens 2000, got %d", cfg.AI.MaxTokens)
	}
	if cfg.Crawler.ListingURL != "https://beyondchats.com/blogs/" {
		t.Errorf("Unexpected listing URL %s", cfg.Crawler.ListingURL)
	}
	if !cfg.Enhance.Enabled {
		t.Error("Expected enhance to be enabled by default")
	}
	if len(cfg.References.BlockedDomains) != 4 {
		t.Errorf("Expected 4 blocked domains, got %v", cfg.References.BlockedDomains)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/enhancer")
	t.Setenv("PORT", "8081")
	t.Setenv("SERPER_API_KEY", "serper-key")
	t.Setenv("GOOGLE_AI_API_KEY", "gemini-key")
	t.Setenv("ENABLE_ENHANCE", "false")
	t.Setenv("LLM_MODEL", "gemini-2.0-flash")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.ConnectionString != "postgres://localhost/enhancer" {
		t.Errorf("Expected DATABASE_URL binding, got %q", cfg.Database.ConnectionString)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Server.Port)
	}
	if cfg.Search.Providers.Serper.APIKey != "serper-key" {
		t.Errorf("Expected serper key binding, got %q", cfg.Search.Providers.Serper.APIKey)
	}
	if cfg.AI.Gemini.APIKey != "gemini-key" {
		t.Errorf("Expected gemini key from GOOGLE_AI_API_KEY, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.AI.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Expected LLM_MODEL to override gemini model, got %q", cfg.AI.Gemini.Model)
	}
	if cfg.Enhance.Enabled {
		t.Error("Expected ENABLE_ENHANCE=false to disable enhancement")
	}
	if err := cfg.EnhancementCredentials(); err != nil {
		t.Errorf("Expected credentials to be complete, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "enhancer.yaml")
	content := `
search:
  provider: mock
ai:
  provider: cohere
references:
  top_n: 3
  blocked_domains: ["  TikTok.com ", "", "youtube.com"]
crawler:
  limit: 8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.ConfigFile != path {
		t.Errorf("Expected config file %s, got %s", path, cfg.App.ConfigFile)
	}
	if cfg.Search.Provider != "mock" {
		t.Errorf("Expected mock provider, got %s", cfg.Search.Provider)
	}
	if cfg.References.TopN != 3 {
		t.Errorf("Expected top_n 3, got %d", cfg.References.TopN)
	}
	if cfg.Crawler.Limit != 8 {
		t.Errorf("Expected crawler limit 8, got %d", cfg.Crawler.Limit)
	}
	if strings.Join(cfg.References.BlockedDomains, ",") != "tiktok.com,youtube.com" {
		t.Errorf("Expected normalized blocked domains, got %v", cfg.References.BlockedDomains)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEARCH_PROVIDER", "altavista")

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected error for unknown search provider")
	}
	if !strings.Contains(err.Error(), "Unknown search provider") {
		t.Errorf("Expected unknown provider message, got %v", err)
	}
}

func TestEnhancementCredentialsMissing(t *testing.T) {
	cfg := &Config{
		Search: Search{Provider: "serper"},
		AI:     AI{Provider: "gemini", Gemini: ModelConfig{APIKey: "PLACEHOLDER"}},
	}

	err := cfg.EnhancementCredentials()
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "SERPER_API_KEY") || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("Expected both credentials to be reported, got %v", err)
	}

	cfg.Search.Provider = "mock"
	cfg.AI.Gemini.APIKey = "real-key"
	if err := cfg.EnhancementCredentials(); err != nil {
		t.Errorf("Expected mock search to need no key, got %v", err)
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.DatabaseURL(); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for empty connection string, got %v", err)
	}

	cfg.Database.ConnectionString = "postgres://x"
	url, err := cfg.DatabaseURL()
	if err != nil || url != "postgres://x" {
		t.Errorf("Expected connection string, got %q, %v", url, err)
	}
}

func TestLoadGoogleSearchFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEARCH_PROVIDER", "google")
	t.Setenv("GOOGLE_CSE_API_KEY", "cse-key")
	t.Setenv("GOOGLE_CSE_ID", "engine-id")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	providerCfg := cfg.SearchProviderConfig()
	if providerCfg["api_key"] != "cse-key" || providerCfg["search_engine_id"] != "engine-id" {
		t.Errorf("Unexpected Google provider config %v", providerCfg)
	}
	if err := cfg.EnhancementCredentials(); err != nil {
		t.Errorf("Expected Google credentials to be complete, got %v", err)
	}

	cfg.Search.Providers.Google.SearchEngineID = ""
	err = cfg.EnhancementCredentials()
	if !errors.Is(err, core.ErrConfiguration) || !strings.Contains(err.Error(), "GOOGLE_CSE_ID") {
		t.Errorf("Expected missing search engine ID to be reported, got %v", err)
	}
}

func TestDuckDuckGoNeedsNoCredentials(t *testing.T) {
	cfg := &Config{
		Search:    Search{Provider: "duckduckgo"},
		AI:        AI{Provider: "stub"},
		Extractor: Extractor{UserAgent: "agent/1.0"},
	}
	if err := cfg.EnhancementCredentials(); err != nil {
		t.Errorf("Expected no credentials for duckduckgo, got %v", err)
	}
	if got := cfg.SearchProviderConfig()["user_agent"]; got != "agent/1.0" {
		t.Errorf("Expected extractor user agent to be passed through, got %q", got)
	}
}

func TestLoadZeroTemperature(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.Temperature != 0 {
		t.Errorf("Expected explicit temperature 0 to be kept, got %v", cfg.AI.Temperature)
	}
}

func TestLoadRejectsNegativeTemperature(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "-1")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "ai.temperature") {
		t.Errorf("Expected temperature range error, got %v", err)
	}
}
