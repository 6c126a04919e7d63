// Package config defines configuration structures for the tileseed CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (TILESEED_ prefix)
//   - YAML configuration file
//
// Precedence is flags over environment over file over defaults.
//
// # Structure
//
//	type Config struct {
//	    Service   ServiceConfig
//	    CachePath string
//	    Workers   int
//	    QueueSize int
//	    TileTimeout time.Duration
//	    BatchSize int
//	    Progress  bool
//	    Retry     RetryConfig
//	    Breaker   BreakerConfig
//	    Export    ExportConfig
//	}
//
// API keys are deliberately not part of the file format; they are resolved
// through the creds package so they never end up in checked-in YAML.
package config
