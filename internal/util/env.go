package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory if there is one.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

// GetEnv returns the variable or the empty string.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvString returns the variable, or defaultValue when it is unset or
// empty.
func GetEnvString(key string, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses the variable as an integer. Unset or malformed values
// yield defaultValue; malformed values are logged.
func GetEnvInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, func(v string) (int, error) {
		return strconv.Atoi(v)
	})
}

// GetEnvBool accepts the strconv.ParseBool spellings (1, t, true, ...).
func GetEnvBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, strconv.ParseBool)
}

// GetEnvDuration parses Go durations such as "90s" or "5m". A bare number
// is read as seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, func(v string) (time.Duration, error) {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(v)
	})
}

func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := parse(value)
	if err != nil {
		logger.Warn("Ignoring malformed environment variable", "key", key, "value", value, "err", err)
		return defaultValue
	}
	return parsed
}

// GetEnvList splits a "|" separated variable. Organization names contain
// commas, so the usual separator does not work for alias tables.
func GetEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
