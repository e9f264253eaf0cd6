// Package config loads and validates docsage configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User/global config (~/.config/docsage/config.yaml)
//  3. Project config (.docsage.yaml in project root)
//  4. Environment variables (DOCSAGE_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete docsage configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Backend   BackendConfig   `yaml:"backend" json:"backend"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Ranking   RankingConfig   `yaml:"ranking" json:"ranking"`
	Synthesis SynthesisConfig `yaml:"synthesis" json:"synthesis"`
	Fetcher   FetcherConfig   `yaml:"fetcher" json:"fetcher"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// BackendConfig configures the remote completion service that powers
// intent analysis and answer synthesis.
type BackendConfig struct {
	// URL is the base URL of the answering backend
	// (endpoints /api/keywords and /api/generate-answer).
	URL string `yaml:"url" json:"url"`

	// SystemContext is an optional hint forwarded with every backend call
	// (e.g. "React Native documentation").
	SystemContext string `yaml:"system_context" json:"system_context"`

	// VerificationSiteKey enables the bot-verification header when set.
	// Empty key simply omits the header.
	VerificationSiteKey string `yaml:"verification_site_key" json:"verification_site_key"`

	// VerificationURL is the challenge endpoint that exchanges the site
	// key for a short-lived token.
	VerificationURL string `yaml:"verification_url" json:"verification_url"`

	// KeywordsTimeout bounds the intent-analysis call (default "10s").
	KeywordsTimeout string `yaml:"keywords_timeout" json:"keywords_timeout"`

	// SynthesisTimeout bounds the answer-generation call (default "60s").
	SynthesisTimeout string `yaml:"synthesis_timeout" json:"synthesis_timeout"`

	// VerificationTimeout bounds the token exchange (default "5s").
	VerificationTimeout string `yaml:"verification_timeout" json:"verification_timeout"`

	// RequestsPerSecond rate-limits outgoing backend calls (default 5).
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`

	// Burst is the rate limiter burst size (default 5).
	Burst int `yaml:"burst" json:"burst"`

	// MaxRetries is the retry budget of the shared retry policy.
	// Default 0: failed remote calls are not re-invoked automatically.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// CircuitMaxFailures trips the backend circuit breaker (default 5).
	CircuitMaxFailures int `yaml:"circuit_max_failures" json:"circuit_max_failures"`

	// CircuitResetTimeout is how long the breaker stays open (default "30s").
	CircuitResetTimeout string `yaml:"circuit_reset_timeout" json:"circuit_reset_timeout"`
}

// SearchConfig configures query variants and the fan-out stage.
type SearchConfig struct {
	// MaxVariants is the maximum number of search-query variants requested
	// from intent analysis (default 3).
	MaxVariants int `yaml:"max_variants" json:"max_variants"`

	// PageSize is the per-variant hit count, 5-10 (default 5).
	PageSize int `yaml:"page_size" json:"page_size"`

	// Parallelism caps concurrent variant searches (default 4).
	Parallelism int `yaml:"parallelism" json:"parallelism"`

	// Timeout bounds each variant search (default "5s").
	Timeout string `yaml:"timeout" json:"timeout"`

	// ExpandQueries enables lexical substitution variants (default true).
	ExpandQueries bool `yaml:"expand_queries" json:"expand_queries"`

	// MaxExpansions caps lexical substitutions per variant, at most 2.
	MaxExpansions int `yaml:"max_expansions" json:"max_expansions"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// TTLSeconds is how long a cached answer stays fresh (default 3600).
	TTLSeconds int `yaml:"ttl_seconds" json:"ttl_seconds"`

	// MaxEntries bounds the cache; inserting beyond it evicts the oldest
	// entry by insertion time (default 100).
	MaxEntries int `yaml:"max_entries" json:"max_entries"`

	// Disabled turns response caching off entirely.
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// RankingConfig carries the relevance-scoring weights.
// The relative ordering is the contract: title factors outweigh content,
// content outweighs URL, URL outweighs type/intent, with exact-match
// bonuses on top. The literals are tunable, the ordering is not.
type RankingConfig struct {
	TitleExact     float64 `yaml:"title_exact" json:"title_exact"`
	TitleSubstring float64 `yaml:"title_substring" json:"title_substring"`
	TitleWord      float64 `yaml:"title_word" json:"title_word"`
	ContentPhrase  float64 `yaml:"content_phrase" json:"content_phrase"`
	ContentWord    float64 `yaml:"content_word" json:"content_word"`
	ContentWordCap int     `yaml:"content_word_cap" json:"content_word_cap"`
	URLWord        float64 `yaml:"url_word" json:"url_word"`
	URLLeafBonus   float64 `yaml:"url_leaf_bonus" json:"url_leaf_bonus"`
	TechMatch      float64 `yaml:"tech_match" json:"tech_match"`
	TechMismatch   float64 `yaml:"tech_mismatch" json:"tech_mismatch"`
	DocTypeIntent  float64 `yaml:"doc_type_intent" json:"doc_type_intent"`
	ExactTitle     float64 `yaml:"exact_title" json:"exact_title"`
	PhraseBonus    float64 `yaml:"phrase_bonus" json:"phrase_bonus"`
	AllWordsBonus  float64 `yaml:"all_words_bonus" json:"all_words_bonus"`
	HighlightBonus float64 `yaml:"highlight_bonus" json:"highlight_bonus"`
}

// SynthesisConfig configures answer generation.
type SynthesisConfig struct {
	// Enabled controls whether ranked documents are sent for answer
	// synthesis. When false, PerformSearch returns documents only.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MaxDocuments is how many top-ranked documents are sent, 4-10
	// (default 5). The wire contract caps it at 10.
	MaxDocuments int `yaml:"max_documents" json:"max_documents"`
}

// FetcherConfig configures the fallback page fetcher used to enhance
// thin documents.
type FetcherConfig struct {
	// Enabled turns network page fetching on (default false; thin
	// documents are then enhanced from hit metadata only).
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Timeout bounds each page fetch (default "10s").
	Timeout string `yaml:"timeout" json:"timeout"`

	// MaxBodyKB caps the fetched body size in KiB (default 512).
	MaxBodyKB int `yaml:"max_body_kb" json:"max_body_kb"`

	// UserAgent is sent with fetch requests.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// IndexConfig configures the optional local documentation index.
type IndexConfig struct {
	// Path is the index directory (default ~/.docsage/index).
	Path string `yaml:"path" json:"path"`

	// Name is the default logical index name (default "docs").
	Name string `yaml:"name" json:"name"`

	// Include are glob patterns of documentation files to ingest.
	Include []string `yaml:"include" json:"include"`

	// Exclude are glob patterns to skip.
	Exclude []string `yaml:"exclude" json:"exclude"`

	// WatchDebounce coalesces file events during `index watch` (default "500ms").
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// TelemetryConfig configures local query metrics.
type TelemetryConfig struct {
	// Enabled records per-run metrics (default true; in-memory plus the
	// SQLite store at Path).
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the SQLite database file (default ~/.docsage/telemetry.db).
	Path string `yaml:"path" json:"path"`
}

// defaultExcludePatterns are always excluded from local index ingestion.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			URL:                 "",
			SystemContext:       "",
			VerificationSiteKey: "",
			VerificationURL:     "",
			KeywordsTimeout:     "10s",
			SynthesisTimeout:    "60s",
			VerificationTimeout: "5s",
			RequestsPerSecond:   5,
			Burst:               5,
			MaxRetries:          0,
			CircuitMaxFailures:  5,
			CircuitResetTimeout: "30s",
		},
		Search: SearchConfig{
			MaxVariants:   3,
			PageSize:      5,
			Parallelism:   4,
			Timeout:       "5s",
			ExpandQueries: true,
			MaxExpansions: 2,
		},
		Cache: CacheConfig{
			TTLSeconds: 3600,
			MaxEntries: 100,
			Disabled:   false,
		},
		Ranking: RankingConfig{
			TitleExact:     100,
			TitleSubstring: 50,
			TitleWord:      10,
			ContentPhrase:  8,
			ContentWord:    2,
			ContentWordCap: 5,
			URLWord:        5,
			URLLeafBonus:   2,
			TechMatch:      15,
			TechMismatch:   -25,
			DocTypeIntent:  10,
			ExactTitle:     40,
			PhraseBonus:    25,
			AllWordsBonus:  10,
			HighlightBonus: 1,
		},
		Synthesis: SynthesisConfig{
			Enabled:      true,
			MaxDocuments: 5,
		},
		Fetcher: FetcherConfig{
			Enabled:   false,
			Timeout:   "10s",
			MaxBodyKB: 512,
			UserAgent: "docsage/1.0 (+https://github.com/docsage/docsage)",
		},
		Index: IndexConfig{
			Path:          defaultIndexPath(),
			Name:          "docs",
			Include:       []string{"**/*.md", "**/*.markdown", "**/*.json"},
			Exclude:       defaultExcludePatterns,
			WatchDebounce: "500ms",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "debug",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Path:    defaultTelemetryPath(),
		},
	}
}

// defaultIndexPath returns the default local index directory.
func defaultIndexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsage", "index")
	}
	return filepath.Join(home, ".docsage", "index")
}

// defaultTelemetryPath returns the default telemetry database file.
func defaultTelemetryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsage", "telemetry.db")
	}
	return filepath.Join(home, ".docsage", "telemetry.db")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docsage/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docsage/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsage", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsage", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsage", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .docsage.yaml or .docsage.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".docsage.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".docsage.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Backend
	if other.Backend.URL != "" {
		c.Backend.URL = other.Backend.URL
	}
	if other.Backend.SystemContext != "" {
		c.Backend.SystemContext = other.Backend.SystemContext
	}
	if other.Backend.VerificationSiteKey != "" {
		c.Backend.VerificationSiteKey = other.Backend.VerificationSiteKey
	}
	if other.Backend.VerificationURL != "" {
		c.Backend.VerificationURL = other.Backend.VerificationURL
	}
	if other.Backend.KeywordsTimeout != "" {
		c.Backend.KeywordsTimeout = other.Backend.KeywordsTimeout
	}
	if other.Backend.SynthesisTimeout != "" {
		c.Backend.SynthesisTimeout = other.Backend.SynthesisTimeout
	}
	if other.Backend.VerificationTimeout != "" {
		c.Backend.VerificationTimeout = other.Backend.VerificationTimeout
	}
	if other.Backend.RequestsPerSecond != 0 {
		c.Backend.RequestsPerSecond = other.Backend.RequestsPerSecond
	}
	if other.Backend.Burst != 0 {
		c.Backend.Burst = other.Backend.Burst
	}
	if other.Backend.MaxRetries != 0 {
		c.Backend.MaxRetries = other.Backend.MaxRetries
	}
	if other.Backend.CircuitMaxFailures != 0 {
		c.Backend.CircuitMaxFailures = other.Backend.CircuitMaxFailures
	}
	if other.Backend.CircuitResetTimeout != "" {
		c.Backend.CircuitResetTimeout = other.Backend.CircuitResetTimeout
	}

	// Search
	if other.Search.MaxVariants != 0 {
		c.Search.MaxVariants = other.Search.MaxVariants
	}
	if other.Search.PageSize != 0 {
		c.Search.PageSize = other.Search.PageSize
	}
	if other.Search.Parallelism != 0 {
		c.Search.Parallelism = other.Search.Parallelism
	}
	if other.Search.Timeout != "" {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.MaxExpansions != 0 {
		c.Search.MaxExpansions = other.Search.MaxExpansions
	}
	// ExpandQueries defaults to true; an explicit false is only observable
	// when some other search field was also set.
	if other.Search.MaxVariants != 0 || other.Search.PageSize != 0 {
		c.Search.ExpandQueries = other.Search.ExpandQueries
	}

	// Cache
	if other.Cache.TTLSeconds != 0 {
		c.Cache.TTLSeconds = other.Cache.TTLSeconds
	}
	if other.Cache.MaxEntries != 0 {
		c.Cache.MaxEntries = other.Cache.MaxEntries
	}
	if other.Cache.Disabled {
		c.Cache.Disabled = true
	}

	// Ranking
	mergeRanking(&c.Ranking, &other.Ranking)

	// Synthesis
	if other.Synthesis.MaxDocuments != 0 {
		c.Synthesis.MaxDocuments = other.Synthesis.MaxDocuments
		c.Synthesis.Enabled = other.Synthesis.Enabled
	}

	// Fetcher
	if other.Fetcher.Enabled {
		c.Fetcher.Enabled = true
	}
	if other.Fetcher.Timeout != "" {
		c.Fetcher.Timeout = other.Fetcher.Timeout
	}
	if other.Fetcher.MaxBodyKB != 0 {
		c.Fetcher.MaxBodyKB = other.Fetcher.MaxBodyKB
	}
	if other.Fetcher.UserAgent != "" {
		c.Fetcher.UserAgent = other.Fetcher.UserAgent
	}

	// Index
	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.Name != "" {
		c.Index.Name = other.Index.Name
	}
	if len(other.Index.Include) > 0 {
		c.Index.Include = other.Index.Include
	}
	if len(other.Index.Exclude) > 0 {
		// Merge with defaults rather than replace
		c.Index.Exclude = append(c.Index.Exclude, other.Index.Exclude...)
	}
	if other.Index.WatchDebounce != "" {
		c.Index.WatchDebounce = other.Index.WatchDebounce
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	// Telemetry
	if other.Telemetry.Path != "" {
		c.Telemetry.Path = other.Telemetry.Path
		c.Telemetry.Enabled = other.Telemetry.Enabled
	}
}

// mergeRanking merges non-zero ranking weights. TechMismatch is the one
// weight whose meaningful values are negative.
func mergeRanking(dst, src *RankingConfig) {
	if src.TitleExact != 0 {
		dst.TitleExact = src.TitleExact
	}
	if src.TitleSubstring != 0 {
		dst.TitleSubstring = src.TitleSubstring
	}
	if src.TitleWord != 0 {
		dst.TitleWord = src.TitleWord
	}
	if src.ContentPhrase != 0 {
		dst.ContentPhrase = src.ContentPhrase
	}
	if src.ContentWord != 0 {
		dst.ContentWord = src.ContentWord
	}
	if src.ContentWordCap != 0 {
		dst.ContentWordCap = src.ContentWordCap
	}
	if src.URLWord != 0 {
		dst.URLWord = src.URLWord
	}
	if src.URLLeafBonus != 0 {
		dst.URLLeafBonus = src.URLLeafBonus
	}
	if src.TechMatch != 0 {
		dst.TechMatch = src.TechMatch
	}
	if src.TechMismatch != 0 {
		dst.TechMismatch = src.TechMismatch
	}
	if src.DocTypeIntent != 0 {
		dst.DocTypeIntent = src.DocTypeIntent
	}
	if src.ExactTitle != 0 {
		dst.ExactTitle = src.ExactTitle
	}
	if src.PhraseBonus != 0 {
		dst.PhraseBonus = src.PhraseBonus
	}
	if src.AllWordsBonus != 0 {
		dst.AllWordsBonus = src.AllWordsBonus
	}
	if src.HighlightBonus != 0 {
		dst.HighlightBonus = src.HighlightBonus
	}
}

// applyEnvOverrides applies DOCSAGE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSAGE_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("DOCSAGE_SYSTEM_CONTEXT"); v != "" {
		c.Backend.SystemContext = v
	}
	if v := os.Getenv("DOCSAGE_SITE_KEY"); v != "" {
		c.Backend.VerificationSiteKey = v
	}
	if v := os.Getenv("DOCSAGE_MAX_VARIANTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxVariants = n
		}
	}
	if v := os.Getenv("DOCSAGE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.PageSize = n
		}
	}
	if v := os.Getenv("DOCSAGE_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("DOCSAGE_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv("DOCSAGE_CACHE_DISABLED"); v != "" {
		c.Cache.Disabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("DOCSAGE_MAX_DOCUMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Synthesis.MaxDocuments = n
		}
	}
	if v := os.Getenv("DOCSAGE_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("DOCSAGE_INDEX_NAME"); v != "" {
		c.Index.Name = v
	}
	if v := os.Getenv("DOCSAGE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCSAGE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("DOCSAGE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.MaxVariants < 1 || c.Search.MaxVariants > 5 {
		return fmt.Errorf("search.max_variants must be between 1 and 5, got %d", c.Search.MaxVariants)
	}
	if c.Search.PageSize < 5 || c.Search.PageSize > 10 {
		return fmt.Errorf("search.page_size must be between 5 and 10, got %d", c.Search.PageSize)
	}
	if c.Search.Parallelism < 1 {
		return fmt.Errorf("search.parallelism must be positive, got %d", c.Search.Parallelism)
	}
	if c.Search.MaxExpansions < 0 || c.Search.MaxExpansions > 2 {
		return fmt.Errorf("search.max_expansions must be between 0 and 2, got %d", c.Search.MaxExpansions)
	}

	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}

	if c.Synthesis.MaxDocuments < 4 || c.Synthesis.MaxDocuments > 10 {
		return fmt.Errorf("synthesis.max_documents must be between 4 and 10, got %d", c.Synthesis.MaxDocuments)
	}

	if c.Ranking.TechMismatch > 0 {
		return fmt.Errorf("ranking.tech_mismatch must be zero or negative, got %f", c.Ranking.TechMismatch)
	}
	// Relative ordering contract of the scoring factors
	if c.Ranking.TitleExact < c.Ranking.TitleSubstring || c.Ranking.TitleSubstring < c.Ranking.TitleWord {
		return fmt.Errorf("ranking title weights must satisfy title_exact >= title_substring >= title_word")
	}

	for _, tc := range []struct {
		name  string
		value string
	}{
		{"backend.keywords_timeout", c.Backend.KeywordsTimeout},
		{"backend.synthesis_timeout", c.Backend.SynthesisTimeout},
		{"backend.verification_timeout", c.Backend.VerificationTimeout},
		{"backend.circuit_reset_timeout", c.Backend.CircuitResetTimeout},
		{"search.timeout", c.Search.Timeout},
		{"fetcher.timeout", c.Fetcher.Timeout},
		{"index.watch_debounce", c.Index.WatchDebounce},
	} {
		if tc.value == "" {
			continue
		}
		if _, err := time.ParseDuration(tc.value); err != nil {
			return fmt.Errorf("%s is not a valid duration: %q", tc.name, tc.value)
		}
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// Duration parses a duration config value, returning fallback when the
// value is empty or malformed. Validate reports malformed values; this
// keeps call sites total.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// FindProjectRoot finds the project root directory by walking up from
// startDir looking for .git or a .docsage.yaml/.yml file.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".docsage.yaml")) ||
			fileExists(filepath.Join(currentDir, ".docsage.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverDocsDirs discovers documentation directories in the project,
// used to seed index.include when running `docsage index build` without
// explicit paths.
func DiscoverDocsDirs(dir string) []string {
	commonDocDirs := []string{"docs", "doc", "documentation", "website/docs"}
	commonDocFiles := []string{"README.md", "readme.md", "README.markdown"}

	var found []string

	for _, d := range commonDocDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	for _, f := range commonDocFiles {
		if fileExists(filepath.Join(dir, f)) {
			found = append(found, f)
			break // Only add one README
		}
	}

	return found
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Backend.KeywordsTimeout == "" {
		c.Backend.KeywordsTimeout = defaults.Backend.KeywordsTimeout
		added = append(added, "backend.keywords_timeout")
	}
	if c.Backend.SynthesisTimeout == "" {
		c.Backend.SynthesisTimeout = defaults.Backend.SynthesisTimeout
		added = append(added, "backend.synthesis_timeout")
	}
	if c.Backend.RequestsPerSecond == 0 {
		c.Backend.RequestsPerSecond = defaults.Backend.RequestsPerSecond
		added = append(added, "backend.requests_per_second")
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = defaults.Cache.TTLSeconds
		added = append(added, "cache.ttl_seconds")
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = defaults.Cache.MaxEntries
		added = append(added, "cache.max_entries")
	}
	if c.Ranking.TitleExact == 0 {
		c.Ranking = defaults.Ranking
		added = append(added, "ranking")
	}
	if c.Synthesis.MaxDocuments == 0 {
		c.Synthesis.MaxDocuments = defaults.Synthesis.MaxDocuments
		added = append(added, "synthesis.max_documents")
	}
	if c.Telemetry.Path == "" {
		c.Telemetry.Path = defaults.Telemetry.Path
		added = append(added, "telemetry.path")
	}

	return added
}
