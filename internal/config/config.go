// Package config loads and validates the engine's declarative
// configuration document (spec §4.8, §6): viper-backed YAML plus
// environment-variable override, grounded on the teacher's
// internal/config/config.go per-section struct + Validate pattern.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// Config is the top-level configuration document (spec §4.8).
type Config struct {
	Server          ServerConfig           `mapstructure:"server"`
	Cache           CacheSectionConfig     `mapstructure:"cache"`
	Sources         []domain.SourceConfig  `mapstructure:"sources"`
	Performance     PerformanceConfig      `mapstructure:"performance"`
	ContentTypes    map[string]ContentType `mapstructure:"content_types"`
	Matcher         MatcherConfig          `mapstructure:"matcher"`
	Indexer         IndexerConfig          `mapstructure:"indexer"`
	CheckpointStore CheckpointStoreConfig  `mapstructure:"checkpoint_store"`
	Log             LogConfig              `mapstructure:"log"`
}

// ServerConfig holds the wire-layer listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.Port)
	}
	if s.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	return nil
}

// CacheMemoryConfig configures the mandatory memory tier.
type CacheMemoryConfig struct {
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// CacheBreakerConfig configures the remote-tier circuit breaker.
type CacheBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	OpenDuration     time.Duration `mapstructure:"open_duration"`
}

// Validate mirrors the teacher's
// internal/infrastructure/llm.CircuitBreakerConfig.Validate shape: a
// breaker sub-config validated independently of its owning section.
func (b CacheBreakerConfig) Validate() error {
	if b.FailureThreshold <= 0 {
		return fmt.Errorf("cache.remote.breaker.failure_threshold must be positive")
	}
	if b.Window <= 0 {
		return fmt.Errorf("cache.remote.breaker.window must be positive")
	}
	if b.OpenDuration <= 0 {
		return fmt.Errorf("cache.remote.breaker.open_duration must be positive")
	}
	return nil
}

// CacheRemoteConfig configures the optional Redis-backed remote tier.
type CacheRemoteConfig struct {
	Enabled     bool               `mapstructure:"enabled"`
	Addr        string             `mapstructure:"addr"`
	Password    string             `mapstructure:"password"`
	DB          int                `mapstructure:"db"`
	PoolSize    int                `mapstructure:"pool_size"`
	DialTimeout time.Duration      `mapstructure:"dial_timeout"`
	Breaker     CacheBreakerConfig `mapstructure:"breaker"`
}

func (r CacheRemoteConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Addr == "" {
		return fmt.Errorf("cache.remote.addr cannot be empty when cache.remote.enabled is true")
	}
	return r.Breaker.Validate()
}

// CacheSectionConfig is the cache layer's full configuration (spec §4.3).
type CacheSectionConfig struct {
	Strategy string            `mapstructure:"strategy"`
	Memory   CacheMemoryConfig `mapstructure:"memory"`
	Remote   CacheRemoteConfig `mapstructure:"remote"`
}

func (c CacheSectionConfig) Validate() error {
	switch c.Strategy {
	case "hybrid", "memory_only":
	default:
		return fmt.Errorf("cache.strategy must be hybrid or memory_only, got %q", c.Strategy)
	}
	if c.Memory.MaxEntries <= 0 {
		return fmt.Errorf("cache.memory.max_entries must be positive")
	}
	if c.Strategy == "hybrid" {
		if err := c.Remote.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PerformanceConfig tunes the concurrency/resource model (spec §5).
type PerformanceConfig struct {
	PerCallConcurrencyLimit int           `mapstructure:"per_call_concurrency_limit"`
	GlobalConcurrencyLimit  int           `mapstructure:"global_concurrency_limit"`
	AdapterDeadline         time.Duration `mapstructure:"adapter_deadline"`
	OverallDeadline         time.Duration `mapstructure:"overall_deadline"`
	CancellationGrace       time.Duration `mapstructure:"cancellation_grace"`
}

func (p PerformanceConfig) Validate() error {
	if p.PerCallConcurrencyLimit <= 0 {
		return fmt.Errorf("performance.per_call_concurrency_limit must be positive")
	}
	if p.GlobalConcurrencyLimit < p.PerCallConcurrencyLimit {
		return fmt.Errorf("performance.global_concurrency_limit must be >= per_call_concurrency_limit")
	}
	if p.AdapterDeadline <= 0 {
		return fmt.Errorf("performance.adapter_deadline must be positive")
	}
	return nil
}

// ContentType configures one content type's cache TTL and whether it
// participates in startup warmup.
type ContentType struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Warmup bool          `mapstructure:"warmup"`
}

// MatcherConfig tunes the matcher pipeline (spec §4.5).
type MatcherConfig struct {
	MinConfidence          float64             `mapstructure:"min_confidence"`
	MaxResults             int                 `mapstructure:"max_results"`
	SimilarityThreshold    float64             `mapstructure:"similarity_threshold"`
	UseQualityScore        bool                `mapstructure:"use_quality_score"`
	AliasMap               map[string][]string `mapstructure:"alias_map"`
	FuzzyAlertTypeMatching bool                `mapstructure:"fuzzy_alert_type_matching"`
}

func (m MatcherConfig) Validate() error {
	if m.MinConfidence < 0 || m.MinConfidence > 1 {
		return fmt.Errorf("matcher.min_confidence must be in [0,1]")
	}
	if m.MaxResults <= 0 {
		return fmt.Errorf("matcher.max_results must be positive")
	}
	if m.SimilarityThreshold < 0 || m.SimilarityThreshold > 1 {
		return fmt.Errorf("matcher.similarity_threshold must be in [0,1]")
	}
	return nil
}

// IndexerConfig tunes the indexer & change detector (spec §4.4).
type IndexerConfig struct {
	DeletionGrace       string `mapstructure:"deletion_grace"` // two_pass|time_based
	DeletionGraceWindow int    `mapstructure:"deletion_grace_window"`
}

func (i IndexerConfig) Validate() error {
	switch i.DeletionGrace {
	case "two_pass", "time_based":
	default:
		return fmt.Errorf("indexer.deletion_grace must be two_pass or time_based, got %q", i.DeletionGrace)
	}
	if i.DeletionGraceWindow <= 0 {
		return fmt.Errorf("indexer.deletion_grace_window must be positive")
	}
	return nil
}

// CheckpointStoreConfig configures the optional local checkpoint store
// (spec §6 "Persisted state": indexer checkpoints per adapter).
type CheckpointStoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func (c CheckpointStoreConfig) Validate() error {
	if c.Enabled && c.Path == "" {
		return fmt.Errorf("checkpoint_store.path cannot be empty when enabled")
	}
	return nil
}

// LogConfig configures structured logging, grounded on the teacher's
// LogConfig (internal/config/config.go) plus its lumberjack-backed
// rotating file sink.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// knownTopLevelKeys gates unknown-top-level-key rejection (spec §6
// "Unknown top-level keys produce a startup error").
var knownTopLevelKeys = map[string]struct{}{
	"server": {}, "cache": {}, "sources": {}, "performance": {},
	"content_types": {}, "matcher": {}, "indexer": {}, "checkpoint_store": {}, "log": {},
}

// Validate validates every section, composing each section's own
// Validate method (spec §4.8).
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Performance.Validate(); err != nil {
		return fmt.Errorf("performance: %w", err)
	}
	if err := c.Matcher.Validate(); err != nil {
		return fmt.Errorf("matcher: %w", err)
	}
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	if err := c.CheckpointStore.Validate(); err != nil {
		return fmt.Errorf("checkpoint_store: %w", err)
	}

	names := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources: every entry requires a name")
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("sources: duplicate name %q", s.Name)
		}
		names[s.Name] = struct{}{}
		if s.Type == "" {
			return fmt.Errorf("sources[%s]: type cannot be empty", s.Name)
		}
	}
	return nil
}

// Load reads the configuration document from configPath (if non-empty)
// and environment variables (spec §4.8, grounded on the teacher's
// LoadConfig/setDefaults split). Unknown top-level keys abort with a
// domain.Configuration error (spec §7 "configuration errors abort
// startup before any request is served").
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, domain.Configuration(fmt.Sprintf("failed to read config file: %v", err))
			}
		}
	}

	for _, key := range v.AllKeys() {
		top := strings.SplitN(key, ".", 2)[0]
		if _, ok := knownTopLevelKeys[top]; !ok {
			return nil, domain.Configuration(fmt.Sprintf("unknown top-level configuration key %q", top))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.Configuration(fmt.Sprintf("failed to unmarshal config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.Configuration(err.Error())
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("cache.strategy", "hybrid")
	v.SetDefault("cache.memory.max_entries", 10000)
	v.SetDefault("cache.memory.cleanup_interval", "1m")
	v.SetDefault("cache.remote.enabled", false)
	v.SetDefault("cache.remote.addr", "localhost:6379")
	v.SetDefault("cache.remote.db", 0)
	v.SetDefault("cache.remote.pool_size", 10)
	v.SetDefault("cache.remote.dial_timeout", "5s")
	v.SetDefault("cache.remote.breaker.failure_threshold", 5)
	v.SetDefault("cache.remote.breaker.window", "30s")
	v.SetDefault("cache.remote.breaker.open_duration", "30s")

	v.SetDefault("performance.per_call_concurrency_limit", 10)
	v.SetDefault("performance.global_concurrency_limit", 50)
	v.SetDefault("performance.adapter_deadline", "2s")
	v.SetDefault("performance.overall_deadline", "10s")
	v.SetDefault("performance.cancellation_grace", "2s")

	v.SetDefault("content_types.runbooks.ttl", "1h")
	v.SetDefault("content_types.runbooks.warmup", true)
	v.SetDefault("content_types.decision_trees.ttl", "40m")
	v.SetDefault("content_types.procedures.ttl", "30m")
	v.SetDefault("content_types.knowledge_base.ttl", "15m")
	v.SetDefault("content_types.list_sources.ttl", "5m")
	v.SetDefault("content_types.health.ttl", "10s")

	v.SetDefault("matcher.min_confidence", 0.3)
	v.SetDefault("matcher.max_results", 10)
	v.SetDefault("matcher.similarity_threshold", 0.85)
	v.SetDefault("matcher.use_quality_score", true)
	v.SetDefault("matcher.fuzzy_alert_type_matching", false)

	v.SetDefault("indexer.deletion_grace", "two_pass")
	v.SetDefault("indexer.deletion_grace_window", 2)

	v.SetDefault("checkpoint_store.enabled", false)
	v.SetDefault("checkpoint_store.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}
