package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IGCRAWLER_"

// Archive backends
const (
	BackendCSV      = "csv"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config holds all configuration options for the crawler
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Archive   ArchiveConfig   `yaml:"archive" json:"archive"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the feed client settings. Session values are forwarded
// as cookies and may also come from the credential store.
type InstagramConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	SessionID string        `yaml:"session_id" json:"session_id"`
	CSRFToken string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// CrawlConfig controls which tags are crawled and how deep
type CrawlConfig struct {
	TagFile string `yaml:"tag_file" json:"tag_file" validate:"required"`
	// Goal caps the posts collected per tag; 0 means unlimited
	Goal int `yaml:"goal" json:"goal" validate:"gte=0"`
	// ProgressEvery is the number of posts between progress lines
	ProgressEvery int `yaml:"progress_every" json:"progress_every" validate:"gt=0"`
}

// PathsConfig holds on-disk locations
type PathsConfig struct {
	ImageDir     string `yaml:"image_dir" json:"image_dir" validate:"required"`
	StagingDir   string `yaml:"staging_dir" json:"staging_dir" validate:"required"`
	WatermarkDir string `yaml:"watermark_dir" json:"watermark_dir" validate:"required"`
	PendingFile  string `yaml:"pending_file" json:"pending_file" validate:"required"`
}

// DownloadConfig holds image download settings
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	Pause     time.Duration `yaml:"pause" json:"pause" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig throttles feed page requests
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gt=0"`
	Burst             int `yaml:"burst" json:"burst" validate:"gt=0"`
}

// RetryConfig controls retries of feed page requests
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts" validate:"gte=1"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay" validate:"gt=0"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay" validate:"gtefield=BaseDelay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor" validate:"gte=0,lte=1"`
}

// ArchiveConfig selects and configures the durable archive
type ArchiveConfig struct {
	Backend  string         `yaml:"backend" json:"backend" validate:"oneof=csv mongo postgres"`
	CSVPath  string         `yaml:"csv_path" json:"csv_path"`
	Mongo    MongoConfig    `yaml:"mongo" json:"mongo"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// MongoConfig holds MongoDB archive settings
type MongoConfig struct {
	URI        string `yaml:"uri" json:"uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

// PostgresConfig holds PostgreSQL archive settings
type PostgresConfig struct {
	DSN   string `yaml:"dsn" json:"dsn"`
	Table string `yaml:"table" json:"table"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn warning error disabled"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:   "https://www.instagram.com",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:   30 * time.Second,
		},
		Crawl: CrawlConfig{
			TagFile:       "tags.txt",
			Goal:          0,
			ProgressEvery: 500,
		},
		Paths: PathsConfig{
			ImageDir:     "images",
			StagingDir:   filepath.Join("temp", "images"),
			WatermarkDir: "lastupdate",
			PendingFile:  "retry_posts.csv",
		},
		Download: DownloadConfig{
			Timeout:   30 * time.Second,
			Pause:     700 * time.Millisecond,
			UserAgent: "Mozilla/5.0",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			Burst:             1,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			BaseDelay:    2 * time.Second,
			MaxDelay:     time.Minute,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Archive: ArchiveConfig{
			Backend: BackendCSV,
			CSVPath: "posts.csv",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "igcrawler",
				Collection: "posts",
			},
			Postgres: PostgresConfig{
				Table: "posts",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv overrides values from IGCRAWLER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := os.Getenv(envPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("SESSION_ID", &c.Instagram.SessionID)
	str("CSRF_TOKEN", &c.Instagram.CSRFToken)
	str("USER_AGENT", &c.Instagram.UserAgent)
	str("BASE_URL", &c.Instagram.BaseURL)

	str("TAG_FILE", &c.Crawl.TagFile)
	integer("GOAL", &c.Crawl.Goal)

	str("IMAGE_DIR", &c.Paths.ImageDir)
	str("STAGING_DIR", &c.Paths.StagingDir)
	str("WATERMARK_DIR", &c.Paths.WatermarkDir)
	str("PENDING_FILE", &c.Paths.PendingFile)

	duration("DOWNLOAD_TIMEOUT", &c.Download.Timeout)
	duration("DOWNLOAD_PAUSE", &c.Download.Pause)
	integer("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)

	str("ARCHIVE_BACKEND", &c.Archive.Backend)
	str("ARCHIVE_CSV", &c.Archive.CSVPath)
	str("MONGO_URI", &c.Archive.Mongo.URI)
	str("POSTGRES_DSN", &c.Archive.Postgres.DSN)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igcrawler.yaml",
		".igcrawler.yml",
		filepath.Join(home, ".config", "igcrawler", "config.yaml"),
		filepath.Join(home, ".igcrawler.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the backend-specific requirements
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	switch c.Archive.Backend {
	case BackendCSV:
		if c.Archive.CSVPath == "" {
			errs = append(errs, errors.New("archive.csv_path is required for the csv backend"))
		}
	case BackendMongo:
		if c.Archive.Mongo.URI == "" || c.Archive.Mongo.Database == "" || c.Archive.Mongo.Collection == "" {
			errs = append(errs, errors.New("archive.mongo uri, database and collection are required for the mongo backend"))
		}
	case BackendPostgres:
		if c.Archive.Postgres.DSN == "" {
			errs = append(errs, errors.New("archive.postgres.dsn is required for the postgres backend"))
		}
		if !isIdentifier(c.Archive.Postgres.Table) {
			errs = append(errs, fmt.Errorf("archive.postgres.table %q is not a valid identifier", c.Archive.Postgres.Table))
		}
	}

	if c.Paths.StagingDir != "" && filepath.Clean(c.Paths.StagingDir) == filepath.Clean(c.Paths.ImageDir) {
		errs = append(errs, errors.New("paths.staging_dir must differ from paths.image_dir"))
	}

	return errors.Join(errs...)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags applies flags that were explicitly set on the command line
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["tags"].(string); ok && v != "" {
		c.Crawl.TagFile = v
	}
	if v, ok := flags["goal"].(int); ok && v >= 0 {
		c.Crawl.Goal = v
	}
	if v, ok := flags["images"].(string); ok && v != "" {
		c.Paths.ImageDir = v
	}
	if v, ok := flags["archive"].(string); ok && v != "" {
		c.Archive.Backend = strings.ToLower(v)
	}
	if v, ok := flags["pause"].(time.Duration); ok && v >= 0 {
		c.Download.Pause = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources.
// Precedence: flags > environment > .env files > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igcrawler.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
