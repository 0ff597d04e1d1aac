package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"atlas_scraper/models"
)

// Config is built once at startup and passed down explicitly; nothing in the
// codebase reads the environment after Load returns.
type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	OpenAI    OpenAIConfig
	Postgres  PostgresConfig
	S3        S3Config
	Scheduler SchedulerConfig

	SQLitePath string `env:"SQLITE_PATH" envDefault:"atlas.db"`
	LogPath    string `env:"LOG_PATH" envDefault:"atlas.log"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Platforms holds per-platform tuning, seeded with built-in defaults and
	// optionally overridden by config/platforms/*.yaml.
	Platforms map[models.Platform]*PlatformConfig
}

type ServerConfig struct {
	Port             int           `env:"PORT" envDefault:"5000"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX" envDefault:"25"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ProductionErrors bool          `env:"PRODUCTION_ERRORS" envDefault:"true"`
}

type ScraperConfig struct {
	Headless       bool          `env:"SCRAPER_HEADLESS" envDefault:"true"`
	NavTimeout     time.Duration `env:"SCRAPER_NAV_TIMEOUT" envDefault:"30s"`
	MaxAttempts    int           `env:"SCRAPER_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase    time.Duration `env:"SCRAPER_BACKOFF_BASE" envDefault:"500ms"`
	ProxyURL       string        `env:"SCRAPER_PROXY_URL"`
	BrowserDataDir string        `env:"BROWSER_DATA_DIR"` // playwright driver install dir
}

type CacheConfig struct {
	Dir string `env:"CACHE_DIR" envDefault:".cache"`
	// DefaultTTL applies to real-confidence entries; fallback entries always
	// use their shorter confidence-based TTLs.
	DefaultTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY"`
	Model  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`
}

type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" envDefault:"eu-west-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

// Enabled reports whether image archiving is configured at all.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != ""
}

type SchedulerConfig struct {
	PurgeCron string `env:"CACHE_PURGE_CRON" envDefault:"@hourly"`
	StatsCron string `env:"RUN_STATS_CRON" envDefault:"30 6 * * *"`
}

// PlatformConfig carries the per-portal market baselines and pacing knobs.
type PlatformConfig struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	AvgPricePerSqm float64 `yaml:"avg_price_per_sqm"`
	RentalYield    float64 `yaml:"rental_yield"`
	PreNavDelayMS  int     `yaml:"pre_nav_delay_ms"`
}

func defaultPlatforms() map[models.Platform]*PlatformConfig {
	return map[models.Platform]*PlatformConfig{
		models.PlatformIdealista:  {ID: "idealista", Name: "Idealista", AvgPricePerSqm: 3800, RentalYield: 4.5, PreNavDelayMS: 2000},
		models.PlatformFotocasa:   {ID: "fotocasa", Name: "Fotocasa", AvgPricePerSqm: 3700, RentalYield: 4.6, PreNavDelayMS: 2000},
		models.PlatformHabitaclia: {ID: "habitaclia", Name: "Habitaclia", AvgPricePerSqm: 3600, RentalYield: 4.8, PreNavDelayMS: 2000},
	}
}

// Load reads .env (if present), parses the environment and merges any yaml
// platform overrides from config/platforms.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Platforms: defaultPlatforms()}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.loadPlatformOverrides("config/platforms"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadPlatformOverrides(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}

		var pc PlatformConfig
		if err := yaml.Unmarshal(data, &pc); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}

		platform, ok := models.ParsePlatform(pc.ID)
		if !ok {
			return fmt.Errorf("unknown platform %q in %s", pc.ID, entry.Name())
		}

		base := c.Platforms[platform]
		if pc.Name != "" {
			base.Name = pc.Name
		}
		if pc.AvgPricePerSqm > 0 {
			base.AvgPricePerSqm = pc.AvgPricePerSqm
		}
		if pc.RentalYield > 0 {
			base.RentalYield = pc.RentalYield
		}
		if pc.PreNavDelayMS > 0 {
			base.PreNavDelayMS = pc.PreNavDelayMS
		}
	}

	return nil
}
