package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Genius GeniusConfig
	Cache  CacheConfig
	Log    LogConfig
}

// ServerConfig for HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GeniusConfig for the upstream catalog API
type GeniusConfig struct {
	AccessToken string
	BaseURL     string
}

// CacheConfig selects the cache store backend and its TTLs
type CacheConfig struct {
	Backend       string // "memory", "redis" or "sqlite"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MappingTTL    time.Duration
	PageTTL       time.Duration
}

// LogConfig for zerolog settings
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the prefix SONGBOOK, e.g.
// SONGBOOK_GENIUS_ACCESS_TOKEN overrides genius.access_token.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("genius.base_url", "https://api.genius.com")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.sqlite_path", "./songbook-cache.db")
	v.SetDefault("cache.mapping_ttl", "24h")
	v.SetDefault("cache.page_ttl", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Config file is optional
	_ = v.ReadInConfig()

	v.SetEnvPrefix("SONGBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Genius: GeniusConfig{
			AccessToken: v.GetString("genius.access_token"),
			BaseURL:     v.GetString("genius.base_url"),
		},
		Cache: CacheConfig{
			Backend:       v.GetString("cache.backend"),
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			SQLitePath:    v.GetString("cache.sqlite_path"),
			MappingTTL:    v.GetDuration("cache.mapping_ttl"),
			PageTTL:       v.GetDuration("cache.page_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	return cfg, nil
}

// Validate checks if required configurations are present
func (c *Config) Validate() error {
	var missing []string

	if c.Genius.AccessToken == "" {
		missing = append(missing, "genius.access_token")
	}

	switch c.Cache.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Cache.RedisAddr == "" {
			missing = append(missing, "cache.redis_addr")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
