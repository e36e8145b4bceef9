package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/nabzkeeper/internal/flagx"
)

// Duration accepts both "90m"-style strings and integer nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// JsonConfig is the on-disk shape of the config file. Pointer fields stay
// nil when absent so that only keys present in the file override defaults.
type JsonConfig struct {
	DataDir               *string   `json:"data_dir"`
	IdentityDBPath        *string   `json:"identity_db_path"`
	PartitionsDir         *string   `json:"partitions_dir"`
	RateLimitDBPath       *string   `json:"rate_limit_db_path"`
	HashPartitionNames    *bool     `json:"hash_partition_names"`
	SecretKey             *string   `json:"secret_key"`
	TokenValidityDuration *Duration `json:"token_validity_duration"`
	RateLimitMaxFailures  *int      `json:"rate_limit_max_failures"`
	RateLimitWindow       *Duration `json:"rate_limit_window"`
	LoginType             *string   `json:"login_type"`
	EnableRegistration    *bool     `json:"enable_registration"`
	MinUsernameLength     *int      `json:"min_username_length"`
	MinPasswordLength     *int      `json:"min_password_length"`
	RestrictedUsernames   []string  `json:"restricted_usernames"`
	MaxTags               *int      `json:"max_tags"`
	LogLevel              *string   `json:"log_level"`
}

// parseJSON overlays config with the file named by -c/-config in args.
// No flag means nothing to load.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setIf(&config.DataDir, c.DataDir)
	setIf(&config.IdentityDBPath, c.IdentityDBPath)
	setIf(&config.PartitionsDir, c.PartitionsDir)
	setIf(&config.RateLimitDBPath, c.RateLimitDBPath)
	setIf(&config.HashPartitionNames, c.HashPartitionNames)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.RateLimitMaxFailures, c.RateLimitMaxFailures)
	setIf(&config.LoginType, c.LoginType)
	setIf(&config.EnableRegistration, c.EnableRegistration)
	setIf(&config.MinUsernameLength, c.MinUsernameLength)
	setIf(&config.MinPasswordLength, c.MinPasswordLength)
	setIf(&config.MaxTags, c.MaxTags)
	setIf(&config.LogLevel, c.LogLevel)

	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.RestrictedUsernames != nil {
		config.RestrictedUsernames = c.RestrictedUsernames
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
