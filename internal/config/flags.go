package config

import (
	"flag"
	"fmt"
	"io"
)

// parseFlags overlays command-line flags onto cfg. Each flag defaults to the
// value already in cfg, so an absent flag changes nothing.
//
//	-port int             listen port
//	-db string            SQLite file path
//	-jwt-secret string    HMAC secret for access tokens
//	-token-ttl duration   access token lifetime (e.g. 30m)
//	-bcrypt-cost int      bcrypt work factor
//	-page-size int        default page size for GET /users
//	-max-page-size int    upper bound for ?limit=
//	-redis-addr string    host:port of the cache; empty disables it
//	-cache-ttl duration   lifetime of cached users
//	-log-level string     debug, info, warn or error
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("user-service", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "JWT HMAC secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "access token lifetime")
	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt cost")
	fs.IntVar(&cfg.DefaultPageSize, "page-size", cfg.DefaultPageSize, "default page size")
	fs.IntVar(&cfg.MaxPageSize, "max-page-size", cfg.MaxPageSize, "maximum page size")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address (empty disables caching)")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "user cache TTL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}
	return nil
}
