package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Defaults
// ============================================================================

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, "10s", cfg.Backend.KeywordsTimeout)
	assert.Equal(t, "60s", cfg.Backend.SynthesisTimeout)
	assert.Equal(t, "5s", cfg.Backend.VerificationTimeout)
	assert.Equal(t, float64(5), cfg.Backend.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Backend.Burst)
	assert.Equal(t, 0, cfg.Backend.MaxRetries)

	assert.Equal(t, 3, cfg.Search.MaxVariants)
	assert.Equal(t, 5, cfg.Search.PageSize)
	assert.Equal(t, 4, cfg.Search.Parallelism)
	assert.True(t, cfg.Search.ExpandQueries)
	assert.Equal(t, 2, cfg.Search.MaxExpansions)

	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.False(t, cfg.Cache.Disabled)

	assert.True(t, cfg.Synthesis.Enabled)
	assert.Equal(t, 5, cfg.Synthesis.MaxDocuments)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_RankingOrdering(t *testing.T) {
	// Title factors must dominate content, content dominate URL
	cfg := NewConfig()

	assert.Greater(t, cfg.Ranking.TitleExact, cfg.Ranking.TitleSubstring)
	assert.Greater(t, cfg.Ranking.TitleSubstring, cfg.Ranking.TitleWord)
	assert.Greater(t, cfg.Ranking.TitleWord, cfg.Ranking.ContentWord)
	assert.Greater(t, cfg.Ranking.ContentPhrase, cfg.Ranking.URLWord)
	assert.Negative(t, cfg.Ranking.TechMismatch)
}

// ============================================================================
// Loading and precedence
// ============================================================================

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	// Given an empty project directory and no user config
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	// When loading
	cfg, err := Load(dir)

	// Then defaults apply
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.PageSize)
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	yaml := `
backend:
  url: https://backend.example.com
search:
  page_size: 8
cache:
  ttl_seconds: 120
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example.com", cfg.Backend.URL)
	assert.Equal(t, 8, cfg.Search.PageSize)
	assert.Equal(t, 120, cfg.Cache.TTLSeconds)
	// Untouched fields keep their defaults
	assert.Equal(t, 3, cfg.Search.MaxVariants)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
}

func TestLoad_YmlExtensionAccepted(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	yaml := "search:\n  page_size: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.PageSize)
}

func TestLoad_UserConfigThenProjectConfig(t *testing.T) {
	// Given a user config and a project config that disagree
	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userDir := filepath.Join(xdg, "docsage")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	userYAML := `
backend:
  url: https://user.example.com
search:
  page_size: 9
`
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userYAML), 0o644))

	projectYAML := "search:\n  page_size: 6\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yaml"), []byte(projectYAML), 0o644))

	// When loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then project wins on conflicts, user survives elsewhere
	assert.Equal(t, 6, cfg.Search.PageSize)
	assert.Equal(t, "https://user.example.com", cfg.Backend.URL)
}

func TestLoad_EnvOverridesEverything(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	yaml := "backend:\n  url: https://file.example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yaml"), []byte(yaml), 0o644))

	t.Setenv("DOCSAGE_BACKEND_URL", "https://env.example.com")
	t.Setenv("DOCSAGE_PAGE_SIZE", "10")
	t.Setenv("DOCSAGE_CACHE_DISABLED", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Backend.URL)
	assert.Equal(t, 10, cfg.Search.PageSize)
	assert.True(t, cfg.Cache.Disabled)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yaml"), []byte("search: ["), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "page size too small",
			mutate:  func(c *Config) { c.Search.PageSize = 4 },
			wantErr: "page_size",
		},
		{
			name:    "page size too large",
			mutate:  func(c *Config) { c.Search.PageSize = 11 },
			wantErr: "page_size",
		},
		{
			name:    "max variants zero",
			mutate:  func(c *Config) { c.Search.MaxVariants = 0 },
			wantErr: "max_variants",
		},
		{
			name:    "max variants too large",
			mutate:  func(c *Config) { c.Search.MaxVariants = 6 },
			wantErr: "max_variants",
		},
		{
			name:    "max expansions beyond two",
			mutate:  func(c *Config) { c.Search.MaxExpansions = 3 },
			wantErr: "max_expansions",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(c *Config) { c.Cache.TTLSeconds = 0 },
			wantErr: "ttl_seconds",
		},
		{
			name:    "non-positive cache bound",
			mutate:  func(c *Config) { c.Cache.MaxEntries = -1 },
			wantErr: "max_entries",
		},
		{
			name:    "max documents too small",
			mutate:  func(c *Config) { c.Synthesis.MaxDocuments = 3 },
			wantErr: "max_documents",
		},
		{
			name:    "max documents beyond wire cap",
			mutate:  func(c *Config) { c.Synthesis.MaxDocuments = 11 },
			wantErr: "max_documents",
		},
		{
			name:    "positive tech mismatch",
			mutate:  func(c *Config) { c.Ranking.TechMismatch = 10 },
			wantErr: "tech_mismatch",
		},
		{
			name:    "title ordering inverted",
			mutate:  func(c *Config) { c.Ranking.TitleWord = 500 },
			wantErr: "title",
		},
		{
			name:    "bad duration",
			mutate:  func(c *Config) { c.Search.Timeout = "fast" },
			wantErr: "duration",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Server.Transport = "http" },
			wantErr: "transport",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_Helper(t *testing.T) {
	assert.Equal(t, 10*time.Second, Duration("10s", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("garbage", time.Second))
}

// ============================================================================
// Round trips and merging
// ============================================================================

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := NewConfig()
	original.Backend.URL = "https://roundtrip.example.com"
	original.Search.PageSize = 7
	require.NoError(t, original.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))

	assert.Equal(t, original.Backend.URL, loaded.Backend.URL)
	assert.Equal(t, original.Search.PageSize, loaded.Search.PageSize)
	assert.Equal(t, original.Ranking, loaded.Ranking)
}

func TestMergeWith_ZeroValuesDoNotClobber(t *testing.T) {
	base := NewConfig()
	base.Backend.URL = "https://keep.example.com"

	base.mergeWith(&Config{})

	assert.Equal(t, "https://keep.example.com", base.Backend.URL)
	assert.Equal(t, 5, base.Search.PageSize)
	assert.Equal(t, 3600, base.Cache.TTLSeconds)
}

func TestMergeWith_ExcludePatternsAppend(t *testing.T) {
	base := NewConfig()
	defaultCount := len(base.Index.Exclude)

	base.mergeWith(&Config{Index: IndexConfig{Exclude: []string{"**/tmp/**"}}})

	assert.Len(t, base.Index.Exclude, defaultCount+1)
	assert.Contains(t, base.Index.Exclude, "**/tmp/**")
	assert.Contains(t, base.Index.Exclude, "**/node_modules/**")
}

func TestMergeNewDefaults_FillsMissingFields(t *testing.T) {
	// Simulates a config written by an older version
	cfg := &Config{
		Version: 1,
		Backend: BackendConfig{URL: "https://old.example.com"},
		Search:  SearchConfig{MaxVariants: 2, PageSize: 6, Parallelism: 4, Timeout: "5s"},
		Server:  ServerConfig{Transport: "stdio", LogLevel: "info"},
	}

	added := cfg.MergeNewDefaults()

	assert.NotEmpty(t, added)
	assert.Contains(t, added, "cache.ttl_seconds")
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
	assert.Equal(t, "https://old.example.com", cfg.Backend.URL)
	assert.Equal(t, 2, cfg.Search.MaxVariants)
	assert.NotZero(t, cfg.Ranking.TitleExact)
}

// ============================================================================
// Project discovery
// ============================================================================

func TestFindProjectRoot_GitDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)

	require.NoError(t, err)
	assertSamePath(t, dir, root)
}

func TestFindProjectRoot_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yaml"), []byte("version: 1\n"), 0o644))
	nested := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)

	require.NoError(t, err)
	assertSamePath(t, dir, root)
}

func TestFindProjectRoot_NoMarkerReturnsStart(t *testing.T) {
	dir := t.TempDir()

	root, err := FindProjectRoot(dir)

	require.NoError(t, err)
	assertSamePath(t, dir, root)
}

func TestDiscoverDocsDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hi"), 0o644))

	found := DiscoverDocsDirs(dir)

	assert.Contains(t, found, "docs")
	assert.Contains(t, found, "README.md")
}

// assertSamePath compares paths after resolving symlinks (macOS tempdirs
// live under /var -> /private/var).
func assertSamePath(t *testing.T, want, got string) {
	t.Helper()
	wantResolved, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, wantResolved, gotResolved)
}
