package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/weeklog/internal/flagx"
	"github.com/dmitrijs2005/weeklog/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so files may say "5m" or give integer nanoseconds.
type JsonConfig struct {
	CacheDSN            string         `json:"cache_dsn"`
	CacheTTL            timex.Duration `json:"cache_ttl"`
	RemoteURI           string         `json:"remote_uri"`
	RemoteDatabase      string         `json:"remote_database"`
	RemoteTimeout       timex.Duration `json:"remote_timeout"`
	ConflictTolerance   timex.Duration `json:"conflict_tolerance"`
	TokenSecret         string         `json:"token_secret"`
	LogFile             string         `json:"log_file"`
	Debug               bool           `json:"debug"`
	MetricsAddr         string         `json:"metrics_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3Endpoint          string         `json:"s3_endpoint"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		CacheDSN:            c.CacheDSN,
		CacheTTL:            timex.Duration{Duration: c.CacheTTL},
		RemoteURI:           c.RemoteURI,
		RemoteDatabase:      c.RemoteDatabase,
		RemoteTimeout:       timex.Duration{Duration: c.RemoteTimeout},
		ConflictTolerance:   timex.Duration{Duration: c.ConflictTolerance},
		TokenSecret:         c.TokenSecret,
		LogFile:             c.LogFile,
		Debug:               c.Debug,
		MetricsAddr:         c.MetricsAddr,
		OnlineCheckInterval: timex.Duration{Duration: c.OnlineCheckInterval},
		S3Bucket:            c.S3.Bucket,
		S3Region:            c.S3.Region,
		S3Endpoint:          c.S3.Endpoint,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.CacheDSN = jc.CacheDSN
	c.CacheTTL = jc.CacheTTL.Duration
	c.RemoteURI = jc.RemoteURI
	c.RemoteDatabase = jc.RemoteDatabase
	c.RemoteTimeout = jc.RemoteTimeout.Duration
	c.ConflictTolerance = jc.ConflictTolerance.Duration
	c.TokenSecret = jc.TokenSecret
	c.LogFile = jc.LogFile
	c.Debug = jc.Debug
	c.MetricsAddr = jc.MetricsAddr
	c.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	c.S3.Bucket = jc.S3Bucket
	c.S3.Region = jc.S3Region
	c.S3.Endpoint = jc.S3Endpoint
}

// parseJson overlays cfg with the JSON file given by -c or -config. Keys
// missing from the file keep their current value. The token and the S3 keys
// are not read from the file.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
