// Package config loads the depicts service configuration from an optional
// config.yaml and DEPICTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/commons-depicts/pkg/batch"
	"github.com/Sternrassler/commons-depicts/pkg/client"
	"github.com/Sternrassler/commons-depicts/pkg/commons"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/Sternrassler/commons-depicts/pkg/search"
	"github.com/Sternrassler/commons-depicts/pkg/wikidata"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DEPICTS_REDIS_ADDR.
const EnvPrefix = "DEPICTS"

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig `mapstructure:"server"`
	Log      LogConfig    `mapstructure:"log"`
	Redis    RedisConfig  `mapstructure:"redis"`
	Commons  APIConfig    `mapstructure:"commons"`
	Wikidata APIConfig    `mapstructure:"wikidata"`
	Client   ClientConfig `mapstructure:"client"`
	Search   SearchConfig `mapstructure:"search"`
	Batch    BatchConfig  `mapstructure:"batch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RedisConfig holds connection details for the shared cache and throttle state.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type APIConfig struct {
	APIURL string `mapstructure:"api_url"`
}

// ClientConfig holds the MediaWiki transport settings shared by both APIs.
type ClientConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MaxThrottleWait time.Duration `mapstructure:"max_throttle_wait"`
}

type SearchConfig struct {
	Language          string `mapstructure:"language"`
	DegradeEnrichment bool   `mapstructure:"degrade_enrichment"`
}

type BatchConfig struct {
	ChunkSize      int `mapstructure:"chunk_size"`
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// Load reads config.yaml from the working directory, if present, and
// applies environment overrides on top of the defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.pretty", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("commons.api_url", client.CommonsAPIURL)
	v.SetDefault("wikidata.api_url", client.WikidataAPIURL)

	d := client.DefaultConfig(nil, "")
	v.SetDefault("client.user_agent", "commons-depicts/0.1 (https://github.com/Sternrassler/commons-depicts)")
	v.SetDefault("client.rate_limit", d.RateLimit)
	v.SetDefault("client.request_timeout", d.RequestTimeout)
	v.SetDefault("client.max_retries", d.MaxRetries)
	v.SetDefault("client.initial_backoff", d.InitialBackoff)
	v.SetDefault("client.cache_ttl", d.CacheTTL)
	v.SetDefault("client.max_throttle_wait", d.MaxThrottleWait)

	v.SetDefault("search.language", "en")
	v.SetDefault("search.degrade_enrichment", search.DefaultConfig().DegradeEnrichment)

	b := batch.DefaultConfig()
	v.SetDefault("batch.chunk_size", b.ChunkSize)
	v.SetDefault("batch.max_concurrency", b.MaxConcurrency)
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if strings.TrimSpace(c.Client.UserAgent) == "" {
		return errors.New("client.user_agent is required")
	}
	if c.Batch.ChunkSize < 1 || c.Batch.ChunkSize > batch.MaxChunkSize {
		return fmt.Errorf("batch.chunk_size must be in 1..%d (got %d)", batch.MaxChunkSize, c.Batch.ChunkSize)
	}
	if c.Batch.MaxConcurrency < 1 {
		return fmt.Errorf("batch.max_concurrency must be >= 1 (got %d)", c.Batch.MaxConcurrency)
	}
	if strings.TrimSpace(c.Search.Language) == "" {
		return errors.New("search.language is required")
	}
	return nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// RedisOptions returns the go-redis options, or nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if !c.Redis.Enabled {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// ClientConfig returns the transport configuration for the API at baseURL.
func (c *Config) ClientConfig(rdb *redis.Client, baseURL string) client.Config {
	cfg := client.DefaultConfig(rdb, c.Client.UserAgent)
	cfg.BaseURL = baseURL
	cfg.RateLimit = c.Client.RateLimit
	cfg.RequestTimeout = c.Client.RequestTimeout
	cfg.MaxRetries = c.Client.MaxRetries
	cfg.InitialBackoff = c.Client.InitialBackoff
	cfg.CacheTTL = c.Client.CacheTTL
	cfg.MaxThrottleWait = c.Client.MaxThrottleWait
	return cfg
}

func (c *Config) batchConfig() batch.Config {
	cfg := batch.DefaultConfig()
	cfg.ChunkSize = c.Batch.ChunkSize
	cfg.MaxConcurrency = c.Batch.MaxConcurrency
	return cfg
}

// CommonsConfig returns the Commons adapter configuration.
func (c *Config) CommonsConfig() commons.Config {
	cfg := commons.DefaultConfig()
	cfg.Language = c.Search.Language
	cfg.Batch = c.batchConfig()
	return cfg
}

// WikidataConfig returns the Wikidata adapter configuration.
func (c *Config) WikidataConfig() wikidata.Config {
	cfg := wikidata.DefaultConfig()
	cfg.Language = c.Search.Language
	cfg.Batch = c.batchConfig()
	return cfg
}

// SearchConfig returns the search service configuration.
func (c *Config) SearchConfig() search.Config {
	return search.Config{DegradeEnrichment: c.Search.DegradeEnrichment}
}
