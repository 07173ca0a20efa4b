package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "STOCKPILE_"

// DotEnvFile is loaded, when it exists, before the environment is read.
// Variables already set in the process environment win over the file.
var DotEnvFile = ".env"

// parseEnv overlays STOCKPILE_* variables:
//
//	GRPC_ADDR, HTTP_ADDR, DATABASE_DSN, SECRET_KEY, SESSION_BACKEND,
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_DIAL_TIMEOUT,
//	PURGE_INTERVAL, LOG_LEVEL, LOG_FORMAT
func parseEnv(config *Config) error {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	strs := map[string]*string{
		"GRPC_ADDR":       &config.EndpointAddrGRPC,
		"HTTP_ADDR":       &config.EndpointAddrHTTP,
		"DATABASE_DSN":    &config.DatabaseDSN,
		"SECRET_KEY":      &config.SecretKey,
		"SESSION_BACKEND": &config.SessionBackend,
		"REDIS_ADDR":      &config.RedisAddr,
		"REDIS_PASSWORD":  &config.RedisPassword,
		"LOG_LEVEL":       &config.LogLevel,
		"LOG_FORMAT":      &config.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB": &config.RedisDB,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"REDIS_DIAL_TIMEOUT": &config.RedisDialTimeout,
		"PURGE_INTERVAL":     &config.PurgeInterval,
	}
	for name, dst := range durations {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	return nil
}
