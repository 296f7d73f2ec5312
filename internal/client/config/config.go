package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the weeklog CLI.
//
// Durations are time.Duration; JSON accepts "5m"-style strings or integer
// nanoseconds, environment variables and flags accept "5m"-style strings.
type Config struct {
	CacheDSN            string        `env:"WEEKLOG_CACHE_DSN"`
	CacheTTL            time.Duration `env:"WEEKLOG_CACHE_TTL"`
	RemoteURI           string        `env:"WEEKLOG_REMOTE_URI"`
	RemoteDatabase      string        `env:"WEEKLOG_REMOTE_DATABASE"`
	RemoteTimeout       time.Duration `env:"WEEKLOG_REMOTE_TIMEOUT"`
	ConflictTolerance   time.Duration `env:"WEEKLOG_CONFLICT_TOLERANCE"`
	TokenSecret         string        `env:"WEEKLOG_TOKEN_SECRET"`
	Token               string        `env:"WEEKLOG_TOKEN"`
	LogFile             string        `env:"WEEKLOG_LOG_FILE"`
	Debug               bool          `env:"WEEKLOG_DEBUG"`
	MetricsAddr         string        `env:"WEEKLOG_METRICS_ADDR"`
	OnlineCheckInterval time.Duration `env:"WEEKLOG_ONLINE_CHECK_INTERVAL"`
	S3                  S3Config      `envPrefix:"WEEKLOG_S3_"`
}

// S3Config locates the bucket used by the export and import commands.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.CacheDSN = "data/weeklog-cache.db"
	c.CacheTTL = 5 * time.Minute
	c.RemoteURI = "mongodb://127.0.0.1:27017"
	c.RemoteDatabase = "weeklog"
	c.RemoteTimeout = 5 * time.Second
	c.ConflictTolerance = time.Second
	c.LogFile = "data/weeklog.log"
	c.OnlineCheckInterval = 3 * time.Second
	c.S3.Region = "us-east-1"
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.CacheDSN == "" {
		errs = append(errs, errors.New("cache dsn is empty"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL))
	}
	if c.RemoteURI == "" {
		errs = append(errs, errors.New("remote uri is empty"))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("remote timeout must be positive, got %s", c.RemoteTimeout))
	}
	if c.ConflictTolerance < 0 {
		errs = append(errs, fmt.Errorf("conflict tolerance must not be negative, got %s", c.ConflictTolerance))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then WEEKLOG_* environment variables, then flags. Later
// sources take precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
