package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Paths.Catalog == "" {
		return fmt.Errorf("paths.catalog must be set")
	}
	if cfg.Paths.DiscoveredDir == "" || cfg.Paths.CollectedDir == "" {
		return fmt.Errorf("paths.discovered_dir and paths.collected_dir must be set")
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

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
		if sc.Delay < 0 {
			return fmt.Errorf("sources.%s.delay must be >= 0", name)
		}
		if sc.MaxResults < 0 {
			return fmt.Errorf("sources.%s.max_results must be >= 0, got %d", name, sc.MaxResults)
		}
		if sc.Fetcher != "" && sc.Fetcher != "http" && sc.Fetcher != "browser" {
			return fmt.Errorf("sources.%s.fetcher must be 'http' or 'browser', got %q", name, sc.Fetcher)
		}
	}
	for _, name := range []string{"note", "youtube", "zenn", "hatena"} {
		if sc := sources[name]; sc.Enabled && len(sc.Queries) == 0 {
			return fmt.Errorf("sources.%s.queries must not be empty when enabled", name)
		}
	}

	switch cfg.Explored.Backend {
	case "file":
		if cfg.Paths.Explored == "" {
			return fmt.Errorf("paths.explored must be set for the file backend")
		}
	case "redis":
		if cfg.Explored.RedisAddr == "" {
			return fmt.Errorf("explored.redis_addr must be set for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("explored.backend must be file/redis/memory, got %q", cfg.Explored.Backend)
	}

	if cfg.Discovery.EnrichLimit < 0 {
		return fmt.Errorf("discovery.enrich_limit must be >= 0, got %d", cfg.Discovery.EnrichLimit)
	}
	if cfg.Collect.DefaultAmazon < 0 || cfg.Collect.DefaultAmazon > 100 {
		return fmt.Errorf("collect.default_amazon must be 0-100, got %d", cfg.Collect.DefaultAmazon)
	}
	if cfg.Affiliate.AssociateTag == "" {
		return fmt.Errorf("affiliate.associate_tag must be set")
	}

	if cfg.Mongo.URI != "" && (cfg.Mongo.Database == "" || cfg.Mongo.Collection == "") {
		return fmt.Errorf("mongo.database and mongo.collection must be set when mongo.uri is set")
	}
	if cfg.History.Enabled && cfg.History.DSN == "" {
		return fmt.Errorf("history.dsn must be set when history is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
