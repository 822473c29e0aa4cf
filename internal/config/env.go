package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFile copies the variables in a dotenv file into the process
// environment. Variables that are already set keep their value, and a
// missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment onto cfg. Unset (empty) variables leave
// the current value alone; malformed ones are errors.
//
//	PORT DB_PATH JWT_SECRET TOKEN_TTL BCRYPT_COST DEFAULT_PAGE_SIZE
//	MAX_PAGE_SIZE REDIS_ADDR REDIS_PASSWORD CACHE_TTL LOG_LEVEL
func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v := getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v := getenv(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
			return
		}
		*dst = d
	}

	num("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	str("JWT_SECRET", &cfg.JWTSecret)
	dur("TOKEN_TTL", &cfg.TokenTTL)
	num("BCRYPT_COST", &cfg.BcryptCost)
	num("DEFAULT_PAGE_SIZE", &cfg.DefaultPageSize)
	num("MAX_PAGE_SIZE", &cfg.MaxPageSize)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	dur("CACHE_TTL", &cfg.CacheTTL)
	str("LOG_LEVEL", &cfg.LogLevel)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}
