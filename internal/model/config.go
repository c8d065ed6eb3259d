package model

import (
	"runtime"
	"time"
)

// Config is the complete xpnc configuration.
// Field tags serve both viper (mapstructure) and `xpnc config` rendering (yaml).
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// LLMConfig selects and configures the text-generation provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // xai, openai, anthropic, ollama, gemini
	Model       string  `yaml:"model,omitempty" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the batch result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig locates the SQLite ledger
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles calls to the scoring endpoint
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig configures `xpnc serve`
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// MetricsConfig configures Prometheus output
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	Pretty  bool `yaml:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "xai",
			Timeout:     90,
			Temperature: 0.3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".xpnc-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path: "xpnc.db",
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Output: OutputConfig{
			Pretty: true,
		},
	}
}
