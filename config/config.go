// Package config loads and validates docchat configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override, so that
// redis.addr is read from DOCCHAT_REDIS_ADDR.
const EnvPrefix = "DOCCHAT"

// Renderers and job backends.
const (
	RendererRod  = "rod"
	RendererHTTP = "http"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Redis   RedisConfig   `mapstructure:"redis"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// RedisConfig locates the job stream and progress channels.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Group    string        `mapstructure:"group"`
	Consumer string        `mapstructure:"consumer"`
	Block    time.Duration `mapstructure:"block"`
}

// SQLiteConfig locates the database holding projects, vectors and logs.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GeminiConfig selects the models used for embeddings and answers.
type GeminiConfig struct {
	APIKey          string `mapstructure:"api_key"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
	GenerationModel string `mapstructure:"generation_model"`
	TokenizerModel  string `mapstructure:"tokenizer_model"`
}

// CrawlConfig governs page rendering and politeness.
type CrawlConfig struct {
	Renderer        string          `mapstructure:"renderer"`
	SelectorTimeout time.Duration   `mapstructure:"selector_timeout"`
	FetchTimeout    time.Duration   `mapstructure:"fetch_timeout"`
	RPS             float64         `mapstructure:"rps"`
	RetryDelays     []time.Duration `mapstructure:"retry_delays"`
	RecycleAfter    int64           `mapstructure:"recycle_after"`
	BrowserBin      string          `mapstructure:"browser_bin"`
	UserAgent       string          `mapstructure:"user_agent"`
}

// JobsConfig selects the queue backend and job policies.
type JobsConfig struct {
	Backend          string        `mapstructure:"backend"`
	RejectConcurrent bool          `mapstructure:"reject_concurrent"`
	MarkFailed       bool          `mapstructure:"mark_failed"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
}

// IngestConfig tunes embedding and index writes.
type IngestConfig struct {
	BatchSize    int  `mapstructure:"batch_size"`
	Concurrency  int  `mapstructure:"concurrency"`
	ScopedDelete bool `mapstructure:"scoped_delete"`
	CountTokens  bool `mapstructure:"count_tokens"`
}

// MetricsConfig controls the Prometheus endpoint served by the worker.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from defaults, the optional file at path and the
// environment, in increasing order of precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The bare variable name is accepted too.
	_ = v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "docchat")
	v.SetDefault("redis.group", "workers")
	v.SetDefault("redis.consumer", "worker-1")
	v.SetDefault("redis.block", time.Second)
	v.SetDefault("sqlite.path", DefaultSQLitePath())
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("gemini.generation_model", "gemini-2.5-flash")
	v.SetDefault("gemini.tokenizer_model", "gemini-2.5-flash")
	v.SetDefault("crawl.renderer", RendererRod)
	v.SetDefault("crawl.selector_timeout", 30*time.Second)
	v.SetDefault("crawl.fetch_timeout", 30*time.Second)
	v.SetDefault("crawl.rps", 1.0)
	v.SetDefault("crawl.retry_delays", []time.Duration{time.Second, 2 * time.Second})
	v.SetDefault("crawl.recycle_after", 100)
	v.SetDefault("crawl.browser_bin", "")
	v.SetDefault("crawl.user_agent", "docchat/1.0")
	v.SetDefault("jobs.backend", BackendMemory)
	v.SetDefault("jobs.reject_concurrent", true)
	v.SetDefault("jobs.mark_failed", false)
	v.SetDefault("jobs.stale_after", 2*time.Hour)
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.scoped_delete", false)
	v.SetDefault("ingest.count_tokens", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Jobs.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr must be set when jobs.backend is redis")
		}
		if c.Redis.Block <= 0 {
			return fmt.Errorf("redis.block must be > 0")
		}
	default:
		return fmt.Errorf("jobs.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Jobs.Backend)
	}
	if c.Crawl.Renderer != RendererRod && c.Crawl.Renderer != RendererHTTP {
		return fmt.Errorf("crawl.renderer must be %q or %q, got %q", RendererRod, RendererHTTP, c.Crawl.Renderer)
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path must be set")
	}
	if c.Crawl.RPS < 0 {
		return fmt.Errorf("crawl.rps must be >= 0")
	}
	for _, d := range c.Crawl.RetryDelays {
		if d < 0 {
			return fmt.Errorf("crawl.retry_delays must not be negative")
		}
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be > 0")
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be > 0")
	}
	return nil
}

// DefaultSQLitePath returns ~/.docchat/docchat.db, or docchat.db in the
// working directory when the home directory is unknown.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docchat.db"
	}
	return filepath.Join(home, ".docchat", "docchat.db")
}
