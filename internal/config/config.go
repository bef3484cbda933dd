package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for deskrank.
type Config struct {
	Paths       PathsConfig       `mapstructure:"paths"       yaml:"paths"`
	Fetcher     FetcherConfig     `mapstructure:"fetcher"     yaml:"fetcher"`
	Sources     SourcesConfig     `mapstructure:"sources"     yaml:"sources"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Explored    ExploredConfig    `mapstructure:"explored"    yaml:"explored"`
	Discovery   DiscoveryConfig   `mapstructure:"discovery"   yaml:"discovery"`
	Collect     CollectConfig     `mapstructure:"collect"     yaml:"collect"`
	Affiliate   AffiliateConfig   `mapstructure:"affiliate"   yaml:"affiliate"`
	Mongo       MongoConfig       `mapstructure:"mongo"       yaml:"mongo"`
	History     HistoryConfig     `mapstructure:"history"     yaml:"history"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
}

// PathsConfig locates the files the pipeline reads and rewrites.
type PathsConfig struct {
	Catalog       string `mapstructure:"catalog"        yaml:"catalog"`
	Explored      string `mapstructure:"explored"       yaml:"explored"`
	DiscoveredDir string `mapstructure:"discovered_dir" yaml:"discovered_dir"`
	CollectedDir  string `mapstructure:"collected_dir"  yaml:"collected_dir"`
}

// FetcherConfig controls the page fetchers. Type is the default for sources
// that do not name their own.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	Jitter          bool          `mapstructure:"jitter"            yaml:"jitter"`
}

// SourceConfig tunes one collector.
type SourceConfig struct {
	Enabled    bool          `mapstructure:"enabled"     yaml:"enabled"`
	Queries    []string      `mapstructure:"queries"     yaml:"queries"`
	MaxResults int           `mapstructure:"max_results" yaml:"max_results"`
	Delay      time.Duration `mapstructure:"delay"       yaml:"delay"`

	// Fetcher loads the source's pages: "http" or "browser". Empty uses
	// fetcher.type. API clients always use HTTP.
	Fetcher string `mapstructure:"fetcher" yaml:"fetcher"`
}

// PageFetcher returns the fetcher kind sc's pages are loaded with.
func (c *Config) PageFetcher(sc SourceConfig) string {
	if sc.Fetcher != "" {
		return sc.Fetcher
	}
	return c.Fetcher.Type
}

// SourcesConfig holds per-collector settings.
type SourcesConfig struct {
	Note     SourceConfig `mapstructure:"note"     yaml:"note"`
	YouTube  SourceConfig `mapstructure:"youtube"  yaml:"youtube"`
	Zenn     SourceConfig `mapstructure:"zenn"     yaml:"zenn"`
	Hatena   SourceConfig `mapstructure:"hatena"   yaml:"hatena"`
	Amazon   SourceConfig `mapstructure:"amazon"   yaml:"amazon"`
	Kakaku   SourceConfig `mapstructure:"kakaku"   yaml:"kakaku"`
	Makuake  SourceConfig `mapstructure:"makuake"  yaml:"makuake"`
	Twitter  SourceConfig `mapstructure:"twitter"  yaml:"twitter"`
	Products SourceConfig `mapstructure:"products" yaml:"products"`
}

// CredentialsConfig holds API secrets. They are normally supplied through
// the environment or a .env file.
type CredentialsConfig struct {
	YouTubeAPIKey      string `mapstructure:"youtube_api_key"      yaml:"youtube_api_key"`
	TwitterBearerToken string `mapstructure:"twitter_bearer_token" yaml:"twitter_bearer_token"`
}

// ExploredConfig selects the explored-set backend.
type ExploredConfig struct {
	Backend       string `mapstructure:"backend"        yaml:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"     yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       yaml:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"   yaml:"redis_prefix"`
}

// DiscoveryConfig controls the discover run.
type DiscoveryConfig struct {
	EnrichLimit int           `mapstructure:"enrich_limit" yaml:"enrich_limit"`
	EnrichDelay time.Duration `mapstructure:"enrich_delay" yaml:"enrich_delay"`
}

// CollectConfig controls the collect run.
type CollectConfig struct {
	ItemDelay     time.Duration `mapstructure:"item_delay"     yaml:"item_delay"`
	DefaultAmazon int           `mapstructure:"default_amazon" yaml:"default_amazon"`
	ImageDelay    time.Duration `mapstructure:"image_delay"    yaml:"image_delay"`
	ImageFixDelay time.Duration `mapstructure:"image_fix_delay" yaml:"image_fix_delay"`
}

// AffiliateConfig controls affiliate link generation.
type AffiliateConfig struct {
	AssociateTag string `mapstructure:"associate_tag" yaml:"associate_tag"`
}

// MongoConfig mirrors snapshots into MongoDB when URI is set.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// HistoryConfig enables the SQLite score history.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn"     yaml:"dsn"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with the delays and queries the sources
// were tuned with.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Catalog:       "src/data/items.json",
			Explored:      "data/explored-articles.json",
			DiscoveredDir: "data/discovered",
			CollectedDir:  "data/collected",
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			AcceptLanguage: "ja-JP,ja;q=0.9",
			Stealth:        true,
		},
		Sources: SourcesConfig{
			Note: SourceConfig{
				Enabled:    true,
				Queries:    []string{"デスクツアー"},
				MaxResults: 30,
				Delay:      1500 * time.Millisecond,
				Fetcher:    "browser",
			},
			YouTube: SourceConfig{
				Enabled: true,
				Queries: []string{
					"デスクツアー 2025",
					"デスクツアー 2026",
					"デスクツアー 2024",
					"デスク環境 紹介",
					"デスクセットアップ ガジェット",
				},
				MaxResults: 15,
				Delay:      300 * time.Millisecond,
			},
			Zenn: SourceConfig{
				Enabled: true,
				Queries: []string{
					"デスクツアー",
					"デスク環境",
					"デスクセットアップ",
					"ガジェット 紹介",
					"リモートワーク 環境",
					"在宅ワーク デスク",
					"開発環境 デスク",
					"エンジニア デスク",
				},
				MaxResults: 15,
				Delay:      1500 * time.Millisecond,
				Fetcher:    "browser",
			},
			Hatena: SourceConfig{
				Enabled: true,
				Queries: []string{
					"デスクツアー",
					"デスク環境 紹介",
					"リモートワーク デスク",
					"ガジェット 買ってよかった",
					"在宅ワーク 環境",
					"作業環境 紹介",
				},
				MaxResults: 10,
				Delay:      2 * time.Second,
			},
			Amazon: SourceConfig{
				Enabled:    true,
				MaxResults: 15,
				Delay:      3 * time.Second,
				Fetcher:    "browser",
			},
			Kakaku: SourceConfig{
				Enabled:    true,
				MaxResults: 15,
				Delay:      2 * time.Second,
			},
			Makuake: SourceConfig{
				Enabled:    true,
				Queries:    []string{"ガジェット", "デスク"},
				MaxResults: 20,
				Delay:      2 * time.Second,
				Fetcher:    "browser",
			},
			Twitter: SourceConfig{
				Enabled:    true,
				MaxResults: 50,
			},
			Products: SourceConfig{
				Enabled: true,
				Delay:   2 * time.Second,
			},
		},
		Explored: ExploredConfig{
			Backend:     "file",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "deskrank:explored",
		},
		Discovery: DiscoveryConfig{
			EnrichLimit: 50,
			EnrichDelay: 2 * time.Second,
		},
		Collect: CollectConfig{
			ItemDelay:     time.Second,
			DefaultAmazon: 50,
			ImageDelay:    300 * time.Millisecond,
			ImageFixDelay: 2 * time.Second,
		},
		Affiliate: AffiliateConfig{
			AssociateTag: "deskitemrank-22",
		},
		Mongo: MongoConfig{
			Database:   "deskrank",
			Collection: "snapshots",
		},
		History: HistoryConfig{
			DSN: "data/history.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
