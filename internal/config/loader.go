package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// A .env file in the working directory is loaded first so API keys can live
// next to the data files.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("DESKRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by the site build.
	_ = v.BindEnv("credentials.youtube_api_key", "DESKRANK_CREDENTIALS_YOUTUBE_API_KEY", "YOUTUBE_API_KEY")
	_ = v.BindEnv("credentials.twitter_bearer_token", "DESKRANK_CREDENTIALS_TWITTER_BEARER_TOKEN", "TWITTER_BEARER_TOKEN")
	_ = v.BindEnv("affiliate.associate_tag", "DESKRANK_AFFILIATE_ASSOCIATE_TAG", "NEXT_PUBLIC_AMAZON_ASSOCIATE_TAG")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("deskrank")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".deskrank"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is okay if not explicitly specified
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("paths.catalog", cfg.Paths.Catalog)
	v.SetDefault("paths.explored", cfg.Paths.Explored)
	v.SetDefault("paths.discovered_dir", cfg.Paths.DiscoveredDir)
	v.SetDefault("paths.collected_dir", cfg.Paths.CollectedDir)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.accept_language", cfg.Fetcher.AcceptLanguage)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)
	v.SetDefault("fetcher.jitter", cfg.Fetcher.Jitter)

	sources := map[string]SourceConfig{
		"note":     cfg.Sources.Note,
		"youtube":  cfg.Sources.YouTube,
		"zenn":     cfg.Sources.Zenn,
		"hatena":   cfg.Sources.Hatena,
		"amazon":   cfg.Sources.Amazon,
		"kakaku":   cfg.Sources.Kakaku,
		"makuake":  cfg.Sources.Makuake,
		"twitter":  cfg.Sources.Twitter,
		"products": cfg.Sources.Products,
	}
	for name, sc := range sources {
		prefix := "sources." + name + "."
		v.SetDefault(prefix+"enabled", sc.Enabled)
		v.SetDefault(prefix+"queries", sc.Queries)
		v.SetDefault(prefix+"max_results", sc.MaxResults)
		v.SetDefault(prefix+"delay", sc.Delay)
		v.SetDefault(prefix+"fetcher", sc.Fetcher)
	}

	v.SetDefault("credentials.youtube_api_key", "")
	v.SetDefault("credentials.twitter_bearer_token", "")

	v.SetDefault("explored.backend", cfg.Explored.Backend)
	v.SetDefault("explored.redis_addr", cfg.Explored.RedisAddr)
	v.SetDefault("explored.redis_password", cfg.Explored.RedisPassword)
	v.SetDefault("explored.redis_db", cfg.Explored.RedisDB)
	v.SetDefault("explored.redis_prefix", cfg.Explored.RedisPrefix)

	v.SetDefault("discovery.enrich_limit", cfg.Discovery.EnrichLimit)
	v.SetDefault("discovery.enrich_delay", cfg.Discovery.EnrichDelay)

	v.SetDefault("collect.item_delay", cfg.Collect.ItemDelay)
	v.SetDefault("collect.default_amazon", cfg.Collect.DefaultAmazon)
	v.SetDefault("collect.image_delay", cfg.Collect.ImageDelay)
	v.SetDefault("collect.image_fix_delay", cfg.Collect.ImageFixDelay)

	v.SetDefault("affiliate.associate_tag", cfg.Affiliate.AssociateTag)

	v.SetDefault("mongo.uri", cfg.Mongo.URI)
	v.SetDefault("mongo.database", cfg.Mongo.Database)
	v.SetDefault("mongo.collection", cfg.Mongo.Collection)

	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.dsn", cfg.History.DSN)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
