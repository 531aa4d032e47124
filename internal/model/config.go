package model

import "time"

// Config holds the complete narrascope configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Narration    NarrationConfig    `yaml:"narration" mapstructure:"narration"`
	WCAG         WCAGConfig         `yaml:"wcag" mapstructure:"wcag"`
	Browser      BrowserConfig      `yaml:"browser" mapstructure:"browser"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// HTTPConfig controls page fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// FetchConfig controls crawl politeness
type FetchConfig struct {
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the fetched-page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// NarrationConfig controls how the announcement stream is produced
type NarrationConfig struct {
	// Root is the CSS selector of the container to narrate (default: body)
	Root string `yaml:"root" mapstructure:"root"`
	// Mode is auto (traversal with direct-scan fallback), traversal, or direct
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// WCAGConfig controls the external rule-checking engine
type WCAGConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Tags        []string      `yaml:"tags" mapstructure:"tags"`
	ResultTypes []string      `yaml:"result_types" mapstructure:"result_types"`
	Script      string        `yaml:"script" mapstructure:"script"` // axe-core path or URL
	ScriptTTL   time.Duration `yaml:"script_ttl" mapstructure:"script_ttl"`
}

// BrowserConfig controls the headless browser hosting the rule engine and screenshots
type BrowserConfig struct {
	DebuggerURL string `yaml:"debugger_url,omitempty" mapstructure:"debugger_url"`
	Bin         string `yaml:"bin,omitempty" mapstructure:"bin"`
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
}

// LLMConfig controls the optional AI enrichment step
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictURLs bool   `yaml:"strict_urls" mapstructure:"strict_urls"`
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Screenshot bool   `yaml:"screenshot" mapstructure:"screenshot"`
}

// ConcurrencyConfig controls batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-domain fetch rate in batch mode
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	Color         bool `yaml:"color" mapstructure:"color"`
}

// MetricsConfig controls Prometheus textfile export
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Narrascope/0.1 (+https://github.com/ppiankov/narrascope)",
			MaxBodyBytes: 5_000_000,
		},
		Fetch: FetchConfig{
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".narrascope-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Narration: NarrationConfig{
			Root: "body",
			Mode: "auto",
		},
		WCAG: WCAGConfig{
			Enabled:     false,
			Tags:        []string{"wcag2a", "wcag2aa", "wcag21a", "wcag21aa"},
			ResultTypes: []string{"violations", "incomplete"},
			Script:      "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js",
			ScriptTTL:   7 * 24 * time.Hour,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		LLM: LLMConfig{
			Timeout:    60,
			StrictURLs: true,
			MaxTokens:  1200,
			Screenshot: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Output: OutputConfig{
			IncludeFooter: true,
			Color:         true,
		},
	}
}
