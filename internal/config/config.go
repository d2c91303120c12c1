package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries every tunable the service reads at startup.
type Config struct {
	ServerAddr string `mapstructure:"server_addr"`
	LogLevel   string `mapstructure:"log_level"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	FirestoreProjectID   string `mapstructure:"firestore_project_id"`
	FirestoreCredentials string `mapstructure:"firestore_credentials"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	TopicsFile     string `mapstructure:"topics_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	CacheBackend string `mapstructure:"cache_backend"`
	CachePath    string `mapstructure:"cache_path"`

	News NewsConfig `mapstructure:"news"`
}

// NewsConfig bounds the aggregation pipeline.
type NewsConfig struct {
	EntriesPerFeed  int           `mapstructure:"entries_per_feed"`
	OverfetchFactor int           `mapstructure:"overfetch_factor"`
	FeedWorkers     int           `mapstructure:"feed_workers"`
	ScrapeWorkers   int           `mapstructure:"scrape_workers"`
	ScrapeTimeout   time.Duration `mapstructure:"scrape_timeout"`
	DefaultResults  int           `mapstructure:"default_results"`
}

// Load reads configuration from the environment (NEWSLENS_ prefix)
// with an optional .env file and optional YAML config file.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars win anyway.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("NEWSLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("gemini_model", "gemini-2.0-flash-exp")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("cache_backend", "memory")
	v.SetDefault("cache_path", "newslens-cache.db")

	// Keys with no meaningful default still need registering so
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("firestore_project_id", "")
	v.SetDefault("firestore_credentials", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("topics_file", "")
	v.SetDefault("publishers_file", "")

	v.SetDefault("news.entries_per_feed", 8)
	v.SetDefault("news.overfetch_factor", 3)
	v.SetDefault("news.feed_workers", 3)
	v.SetDefault("news.scrape_workers", 8)
	v.SetDefault("news.scrape_timeout", 8*time.Second)
	v.SetDefault("news.default_results", 5)
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "memory", "bbolt":
	default:
		return fmt.Errorf("cache_backend %q is not supported (memory, bbolt)", c.CacheBackend)
	}

	if c.News.EntriesPerFeed <= 0 {
		return fmt.Errorf("news.entries_per_feed must be positive")
	}
	if c.News.OverfetchFactor <= 0 {
		return fmt.Errorf("news.overfetch_factor must be positive")
	}
	if c.News.FeedWorkers <= 0 || c.News.ScrapeWorkers <= 0 {
		return fmt.Errorf("news worker counts must be positive")
	}
	return nil
}
