// Package config loads runtime configuration for the weeklog CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. WEEKLOG_* environment variables, e.g. WEEKLOG_REMOTE_URI or
//     WEEKLOG_S3_BUCKET.
//  4. Command-line flags, which override everything else.
//
// # JSON schema
//
//	{
//	  "cache_dsn": "data/weeklog-cache.db",
//	  "cache_ttl": "5m",
//	  "remote_uri": "mongodb://127.0.0.1:27017",
//	  "remote_database": "weeklog",
//	  "remote_timeout": "5s",
//	  "conflict_tolerance": "1s",
//	  "log_file": "data/weeklog.log",
//	  "online_check_interval": "3s",
//	  "s3_bucket": "weeklog-backups"
//	}
package config
