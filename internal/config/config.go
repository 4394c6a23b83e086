package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "SCRAPER_CONFIG"

	defaultUserAgent = "plandit-scraper/1.0 (+https://github.com/qepting91/plandit-scraper)"
)

// defaultMirrors are equivalent public endpoints serving the same listing
// data, tried in shuffled order for failover.
var defaultMirrors = []string{
	"https://old.reddit.com",
	"https://redlib.catsarch.com",
	"https://redlib.vsls.cz",
	"https://r.nf",
	"https://libreddit.northboot.xyz",
	"https://redlib.tux.pizza",
}

// Config holds every knob the acquisition pipeline and its collaborators use.
type Config struct {
	Mirrors   []string `yaml:"mirrors"`
	UserAgent string   `yaml:"userAgent"`

	CollectorMode string `yaml:"collectorMode"` // public, api or mock

	Limit           int           `yaml:"limit"`           // target accepted posts per run
	BatchSize       int           `yaml:"batchSize"`       // origin max per page request
	MaxConcurrent   int           `yaml:"maxConcurrent"`   // limiter capacity
	MaxCommentDepth int           `yaml:"maxCommentDepth"` // reply tree cap
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RateLimit       time.Duration `yaml:"rateLimit"`       // min spacing between listing requests
	PageCooldown    time.Duration `yaml:"pageCooldown"`    // politeness delay after a good page
	FailureCooldown time.Duration `yaml:"failureCooldown"` // delay after a fully failed page
	MaxPageRetries  int           `yaml:"maxPageRetries"`  // failed-page budget before the run fails

	DryRun         bool `yaml:"dryRun"`
	DownloadMedia  bool `yaml:"downloadMedia"`
	ScrapeComments bool `yaml:"scrapeComments"`

	Media     MediaConfig     `yaml:"media"`
	Storage   StorageConfig   `yaml:"storage"`
	Plugins   []string        `yaml:"plugins"`
	API       APIConfig       `yaml:"api"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	NATS      NATSConfig      `yaml:"nats"`
}

// MediaConfig bounds per-post media work and locates the download tree.
type MediaConfig struct {
	Dir              string `yaml:"dir"`
	MaxImages        int    `yaml:"maxImages"`
	MaxGalleryImages int    `yaml:"maxGalleryImages"`
	MaxVideos        int    `yaml:"maxVideos"`
	FFmpegPath       string `yaml:"ffmpegPath"`
	ResolvePreviews  bool   `yaml:"resolvePreviews"` // fetch og:image for bare link posts
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // jsonl or mongo
	DataDir  string `yaml:"dataDir"`
	MongoURI string `yaml:"mongoUri"`
	MongoDB  string `yaml:"mongoDb"`
}

// APIConfig controls the read-only REST facade.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// DashboardConfig controls the chart server.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// NATSConfig enables result publishing when a URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			slog.Warn("config: cannot read file, using defaults", "path", path, "err", err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			slog.Warn("config: cannot parse file, using defaults", "path", path, "err", err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.clamp()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MIRRORS"); v != "" {
		c.Mirrors = splitAndTrim(v)
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("COLLECTOR_MODE"); v != "" {
		c.CollectorMode = v
	}
	if v := os.Getenv("SCRAPE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limit = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		c.DryRun = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Storage.MongoURI = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.API.Port = v
	}
	if v := os.Getenv("DASHBOARD_PORT"); v != "" {
		c.Dashboard.Port = v
	}
}

// clamp keeps misconfigured values inside workable bounds.
func (c *Config) clamp() {
	if len(c.Mirrors) == 0 {
		c.Mirrors = defaultMirrors
	}
	if c.BatchSize <= 0 || c.BatchSize > 100 {
		c.BatchSize = 100
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 20
	}
	if c.MaxCommentDepth < 0 {
		c.MaxCommentDepth = 3
	}
	if c.Limit <= 0 {
		c.Limit = 100
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.MaxPageRetries <= 0 {
		c.MaxPageRetries = 3
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Mirrors:         defaultMirrors,
		UserAgent:       defaultUserAgent,
		CollectorMode:   "public",
		Limit:           100,
		BatchSize:       100,
		MaxConcurrent:   20,
		MaxCommentDepth: 3,
		RequestTimeout:  15 * time.Second,
		RateLimit:       500 * time.Millisecond,
		PageCooldown:    time.Second,
		FailureCooldown: 30 * time.Second,
		MaxPageRetries:  3,
		DownloadMedia:   true,
		ScrapeComments:  true,
		Media: MediaConfig{
			Dir:              "data/media",
			MaxImages:        5,
			MaxGalleryImages: 10,
			MaxVideos:        2,
			FFmpegPath:       "ffmpeg",
			ResolvePreviews:  false,
		},
		Storage: StorageConfig{
			Backend: "jsonl",
			DataDir: "data",
			MongoDB: "plandit",
		},
		Plugins:   []string{"deduplicator", "keyword_extractor", "sentiment_tagger"},
		API:       APIConfig{Enabled: true, Port: "8080"},
		Dashboard: DashboardConfig{Enabled: true, Port: "8081"},
		NATS:      NATSConfig{SubjectPrefix: "scrape"},
	}
}
