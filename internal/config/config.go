// Package config loads and validates the collector service configuration
// from a YAML file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadTimeout is the default HTTP server read timeout
	DefaultReadTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default HTTP server write timeout
	DefaultWriteTimeout = 30 * time.Second
	// DefaultFetchTimeout is the default per-call timeout for outbound
	// network calls (source fetch, classification, push delivery)
	DefaultFetchTimeout = 20 * time.Second

	defaultAddress       = ":8090"
	defaultSchedule      = "0 6 * * *"  // daily collect, 06:00
	defaultPushSchedule  = "30 6 * * *" // push after collect settles
	defaultSourceCap     = 30
	defaultHistoryWindow = 500
	defaultThreshold     = 0.85
	defaultBatchSize     = 5
	defaultCooldown      = 300 * time.Millisecond
	defaultMaxRetries    = 2
	defaultPushBatch     = 10
	defaultRateLimit     = 5
	defaultRateWindow    = time.Minute
	defaultClaudeModel   = "claude-haiku-4-5-20251001"
	defaultClaudeURL     = "https://api.anthropic.com/v1/messages"
	defaultVAPIDSubject  = "mailto:admin@ai-tools-daily.com"
)

// Config is the root configuration for the collector service.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Claude   ClaudeConfig   `yaml:"claude"`
	Sources  SourcesConfig  `yaml:"sources"`
	Collect  CollectConfig  `yaml:"collect"`
	Push     PushConfig     `yaml:"push"`
	API      APIConfig      `yaml:"api"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig configures the Redis client used for cache invalidation and
// trigger rate limiting. Optional: an empty addr disables both.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClaudeConfig configures the enrichment classification endpoint.
type ClaudeConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Endpoint  string        `yaml:"endpoint"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SourcesConfig holds per-source settings.
type SourcesConfig struct {
	ProductHuntToken string   `yaml:"producthunt_token"`
	RSSFeeds         []Feed   `yaml:"rss_feeds"`
	Disabled         []string `yaml:"disabled"`
}

// Feed is one syndication feed polled by the RSS adapter.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// CollectConfig tunes the collection pipeline.
type CollectConfig struct {
	Schedule            string        `yaml:"schedule"`      // cron spec for the daily collect run
	PushSchedule        string        `yaml:"push_schedule"` // cron spec for the daily push run
	SourceCap           int           `yaml:"source_cap"`
	HistoryWindow       int           `yaml:"history_window"` // recent tools compared during dedup
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	BatchSize           int           `yaml:"batch_size"`
	BatchCooldown       time.Duration `yaml:"batch_cooldown"`
	MaxRetries          int           `yaml:"max_retries"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`
	CacheKeyPattern     string        `yaml:"cache_key_pattern"` // page-cache keys invalidated post-run
	PushAfterCollect    bool          `yaml:"push_after_collect"`
}

// PushConfig configures VAPID web push delivery.
type PushConfig struct {
	VAPIDPublicKey  string        `yaml:"vapid_public_key"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key"`
	Subject         string        `yaml:"subject"`
	BatchSize       int           `yaml:"batch_size"`
	Timeout         time.Duration `yaml:"timeout"`
}

// APIConfig configures the manual trigger endpoint.
type APIConfig struct {
	TriggerSecret string        `yaml:"trigger_secret"`
	RateLimit     int           `yaml:"rate_limit"`
	RateWindow    time.Duration `yaml:"rate_window"`
}

// Load reads, defaults, env-overrides, and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields. Secrets may arrive via env vars, so they
// are checked lazily by the components that need them.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Collect.SimilarityThreshold <= 0 || c.Collect.SimilarityThreshold > 1 {
		return fmt.Errorf("collect.similarity_threshold must be in (0,1], got %v",
			c.Collect.SimilarityThreshold)
	}
	if c.Collect.HistoryWindow <= 0 {
		return fmt.Errorf("collect.history_window must be positive, got %d",
			c.Collect.HistoryWindow)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Claude.Model == "" {
		cfg.Claude.Model = defaultClaudeModel
	}
	if cfg.Claude.Endpoint == "" {
		cfg.Claude.Endpoint = defaultClaudeURL
	}
	if cfg.Claude.MaxTokens == 0 {
		cfg.Claude.MaxTokens = 512
	}
	if cfg.Claude.Timeout == 0 {
		cfg.Claude.Timeout = DefaultFetchTimeout
	}
	if cfg.Collect.Schedule == "" {
		cfg.Collect.Schedule = defaultSchedule
	}
	if cfg.Collect.PushSchedule == "" {
		cfg.Collect.PushSchedule = defaultPushSchedule
	}
	if cfg.Collect.SourceCap == 0 {
		cfg.Collect.SourceCap = defaultSourceCap
	}
	if cfg.Collect.HistoryWindow == 0 {
		cfg.Collect.HistoryWindow = defaultHistoryWindow
	}
	if cfg.Collect.SimilarityThreshold == 0 {
		cfg.Collect.SimilarityThreshold = defaultThreshold
	}
	if cfg.Collect.BatchSize == 0 {
		cfg.Collect.BatchSize = defaultBatchSize
	}
	if cfg.Collect.BatchCooldown == 0 {
		cfg.Collect.BatchCooldown = defaultCooldown
	}
	if cfg.Collect.MaxRetries == 0 {
		cfg.Collect.MaxRetries = defaultMaxRetries
	}
	if cfg.Collect.FetchTimeout == 0 {
		cfg.Collect.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Collect.CacheKeyPattern == "" {
		cfg.Collect.CacheKeyPattern = "pages:*"
	}
	if cfg.Push.Subject == "" {
		cfg.Push.Subject = defaultVAPIDSubject
	}
	if cfg.Push.BatchSize == 0 {
		cfg.Push.BatchSize = defaultPushBatch
	}
	if cfg.Push.Timeout == 0 {
		cfg.Push.Timeout = DefaultFetchTimeout
	}
	if cfg.API.RateLimit == 0 {
		cfg.API.RateLimit = defaultRateLimit
	}
	if cfg.API.RateWindow == 0 {
		cfg.API.RateWindow = defaultRateWindow
	}
	if len(cfg.Sources.RSSFeeds) == 0 {
		cfg.Sources.RSSFeeds = []Feed{
			{Name: "MarkTechPost", URL: "https://www.marktechpost.com/feed/"},
			{Name: "AI News", URL: "https://www.artificialintelligence-news.com/feed/"},
			{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/"},
		}
	}
}

func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CLAUDE_API_KEY"); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := os.Getenv("PRODUCTHUNT_TOKEN"); v != "" {
		cfg.Sources.ProductHuntToken = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.VAPIDPublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.VAPIDPrivateKey = v
	}
	if v := os.Getenv("VAPID_SUBJECT"); v != "" {
		cfg.Push.Subject = v
	}
	if v := os.Getenv("TRIGGER_SECRET"); v != "" {
		cfg.API.TriggerSecret = v
	}
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("COLLECTOR_PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
}

// parseBool returns true for "true", "1", "yes" (case-insensitive).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
