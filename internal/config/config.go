// Package config builds the server configuration from defaults, then the
// environment, then command-line flags. Later sources win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// minSecretLength matches what auth.NewTokenService accepts.
const minSecretLength = 16

// Config holds runtime settings for the user service.
type Config struct {
	Port            int
	DBPath          string
	JWTSecret       string
	TokenTTL        time.Duration
	BcryptCost      int
	DefaultPageSize int
	MaxPageSize     int
	RedisAddr       string // empty disables the cache
	RedisPassword   string
	CacheTTL        time.Duration
	LogLevel        string
}

// LoadDefaults populates Config with development defaults. JWTSecret has no
// default and must be supplied.
func (c *Config) LoadDefaults() {
	c.Port = 3000
	c.DBPath = "data/users.db"
	c.TokenTTL = time.Hour
	c.BcryptCost = bcrypt.DefaultCost
	c.DefaultPageSize = 10
	c.MaxPageSize = 100
	c.CacheTTL = 5 * time.Minute
	c.LogLevel = "info"
}

// Load builds a validated Config. args are the command-line arguments
// without the program name; getenv is usually os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting that would make startup fail later.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT secret must be at least %d characters (set JWT_SECRET)", minSecretLength))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize <= 0 {
		errs = append(errs, errors.New("page sizes must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Addr is the listen address for net/http.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ParseLevel maps debug/info/warn/error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
