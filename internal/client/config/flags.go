package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/flagx"
)

var flagNames = []string{"a", "d", "cache", "ttl", "secret", "token", "log", "debug", "metrics", "i"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string      remote store URI (mongodb://... or postgres://...)
//	-d string      remote database name
//	-cache string  cache database path
//	-ttl duration  cache entry lifetime
//	-secret string token signing secret
//	-token string  identity token
//	-log string    log file path
//	-debug         mirror logs to the console at debug level
//	-metrics addr  serve /metrics on addr
//	-i int         online check interval in seconds
//
// Arguments for other flags are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("weeklog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RemoteURI, "a", cfg.RemoteURI, "remote store URI")
	fs.StringVar(&cfg.RemoteDatabase, "d", cfg.RemoteDatabase, "remote database name")
	fs.StringVar(&cfg.CacheDSN, "cache", cfg.CacheDSN, "cache database path")
	fs.DurationVar(&cfg.CacheTTL, "ttl", cfg.CacheTTL, "cache entry lifetime")
	fs.StringVar(&cfg.TokenSecret, "secret", cfg.TokenSecret, "token signing secret")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "identity token")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging to console")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "address to serve /metrics on")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, flagNames)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
	return nil
}
