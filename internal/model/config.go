package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete runtime configuration
type Config struct {
	Artifacts    ArtifactConfig    `yaml:"artifacts" mapstructure:"artifacts"`
	Explain      ExplainConfig     `yaml:"explain" mapstructure:"explain"`
	Classifier   ClassifierConfig  `yaml:"classifier" mapstructure:"classifier"`
	Language     LanguageConfig    `yaml:"language" mapstructure:"language"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// ArtifactConfig locates the frozen model artifacts
type ArtifactConfig struct {
	Embedding  string `yaml:"embedding" mapstructure:"embedding"`   // word2vec binary
	Scaler     string `yaml:"scaler" mapstructure:"scaler"`         // scaler YAML/JSON
	Classifier string `yaml:"classifier" mapstructure:"classifier"` // calibrated classifier YAML/JSON
}

// ExplainConfig controls perturbation sampling and the surrogate fit
type ExplainConfig struct {
	Samples     int     `yaml:"samples" mapstructure:"samples"`
	MinSamples  int     `yaml:"min_samples" mapstructure:"min_samples"`
	MaxSamples  int     `yaml:"max_samples" mapstructure:"max_samples"`
	Seed        int64   `yaml:"seed" mapstructure:"seed"`
	KernelWidth float64 `yaml:"kernel_width" mapstructure:"kernel_width"`
	RidgeAlpha  float64 `yaml:"ridge_alpha" mapstructure:"ridge_alpha"`
	TopWords    int     `yaml:"top_words" mapstructure:"top_words"` // 0 keeps every word
}

// ClassifierConfig holds scoring constants
type ClassifierConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// LanguageConfig tunes the language guard
type LanguageConfig struct {
	MinWords      int     `yaml:"min_words" mapstructure:"min_words"`
	MinLetters    int     `yaml:"min_letters" mapstructure:"min_letters"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	Strict        bool    `yaml:"strict" mapstructure:"strict"` // Reject indeterminate results
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Perturbation scoring workers
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"` // Documents analyzed in parallel
}

// RateLimitConfig throttles batch and API callers
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls the report cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// LLMConfig configures the optional narrative provider
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	Strict     bool   `yaml:"strict" mapstructure:"strict"`
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	Output string `yaml:"output" mapstructure:"output"` // stderr, stdout or a file path
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	BodyLimit int    `yaml:"body_limit" mapstructure:"body_limit"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".taieye")

	return &Config{
		Artifacts: ArtifactConfig{
			Embedding:  filepath.Join(base, "models", "embedding.bin"),
			Scaler:     filepath.Join(base, "models", "scaler.yaml"),
			Classifier: filepath.Join(base, "models", "classifier.yaml"),
		},
		Explain: ExplainConfig{
			Samples:     50,
			MinSamples:  25,
			MaxSamples:  500,
			Seed:        42,
			KernelWidth: 25,
			RidgeAlpha:  1.0,
			TopWords:    10,
		},
		Classifier: ClassifierConfig{
			Threshold: DefaultThreshold,
		},
		Language: LanguageConfig{
			MinWords:      3,
			MinLetters:    10,
			MinConfidence: 0.2,
			Strict:        false,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      runtime.NumCPU(),
			BatchWorkers: 2,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         10,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "memory",
			Dir:       filepath.Join(base, "cache"),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
			RedisAddr: "localhost:6379",
		},
		LLM: LLMConfig{
			Timeout:   30,
			Strict:    true,
			MaxTokens: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Server: ServerConfig{
			Addr:      ":8080",
			BodyLimit: 1 << 20,
		},
	}
}
