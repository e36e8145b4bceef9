package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "NABZ_"

// envLookup merges the process environment over the optional .env file
// (NABZ_ENV_FILE, default ".env"). The process environment wins.
func envLookup() func(string) (string, bool) {
	path := os.Getenv(envPrefix + "ENV_FILE")
	if path == "" {
		path = ".env"
	}

	fileVars, err := godotenv.Read(path)
	if err != nil {
		fileVars = map[string]string{}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}
}

// parseEnv overlays config with NABZ_* variables found through lookup.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	for name, dst := range map[string]*string{
		"DATA_DIR":           &config.DataDir,
		"IDENTITY_DB_PATH":   &config.IdentityDBPath,
		"PARTITIONS_DIR":     &config.PartitionsDir,
		"RATE_LIMIT_DB_PATH": &config.RateLimitDBPath,
		"SECRET_KEY":         &config.SecretKey,
		"LOGIN_TYPE":         &config.LoginType,
		"LOG_LEVEL":          &config.LogLevel,
	} {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	for name, dst := range map[string]*bool{
		"HASH_PARTITION_NAMES": &config.HashPartitionNames,
		"ENABLE_REGISTRATION":  &config.EnableRegistration,
	} {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
			}
			*dst = b
		}
	}

	for name, dst := range map[string]*int{
		"RATE_LIMIT_MAX_FAILURES": &config.RateLimitMaxFailures,
		"MIN_USERNAME_LENGTH":     &config.MinUsernameLength,
		"MIN_PASSWORD_LENGTH":     &config.MinPasswordLength,
		"MAX_TAGS":                &config.MaxTags,
	} {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
			}
			*dst = n
		}
	}

	for name, dst := range map[string]*time.Duration{
		"TOKEN_VALIDITY":    &config.TokenValidityDuration,
		"RATE_LIMIT_WINDOW": &config.RateLimitWindow,
	} {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := get("RESTRICTED_USERNAMES"); ok {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		config.RestrictedUsernames = names
	}

	return nil
}
