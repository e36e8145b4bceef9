// Package config handles configuration for the activity backend: defaults,
// JSON overlay, environment (including an optional .env file) and
// command-line flags, applied in that order.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Login types accepted by LoginType.
const (
	LoginTypeUsername = "username"
	LoginTypeEmail    = "email"
	LoginTypePhone    = "phone"
	LoginTypeAny      = "any"
)

// Config holds runtime settings. It is built once and passed to every
// component constructor; nothing reads configuration from globals.
//
// Paths left empty are derived from DataDir:
//   - IdentityDBPath:  <DataDir>/users.db
//   - PartitionsDir:   <DataDir>/databases
//   - RateLimitDBPath: <DataDir>/ratelimit
type Config struct {
	DataDir         string
	IdentityDBPath  string
	PartitionsDir   string
	RateLimitDBPath string

	// HashPartitionNames selects hash-derived partition file names; when
	// false the literal username is used.
	HashPartitionNames bool

	SecretKey             string
	TokenValidityDuration time.Duration

	RateLimitMaxFailures int
	RateLimitWindow      time.Duration

	LoginType           string
	EnableRegistration  bool
	MinUsernameLength   int
	MinPasswordLength   int
	RestrictedUsernames []string

	// MaxTags caps the tags list on write; 0 disables the check.
	MaxTags int

	LogLevel string
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.HashPartitionNames = true
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
	c.RateLimitMaxFailures = 5
	c.RateLimitWindow = time.Hour
	c.LoginType = LoginTypeUsername
	c.EnableRegistration = true
	c.MinUsernameLength = 4
	c.MinPasswordLength = 8
	c.RestrictedUsernames = []string{
		"admin", "administrator", "root", "system", "support",
		"webmaster", "info", "contact", "test", "user",
	}
	c.MaxTags = 7
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config (if any), then environment variables, then flags in args.
// args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, envLookup()); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths() {
	if c.IdentityDBPath == "" {
		c.IdentityDBPath = filepath.Join(c.DataDir, "users.db")
	}
	if c.PartitionsDir == "" {
		c.PartitionsDir = filepath.Join(c.DataDir, "databases")
	}
	if c.RateLimitDBPath == "" {
		c.RateLimitDBPath = filepath.Join(c.DataDir, "ratelimit")
	}
}

// Validate rejects settings the components cannot work with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("config: secret key must not be empty")
	}
	if c.TokenValidityDuration <= 0 {
		return fmt.Errorf("config: token validity must be positive, got %s", c.TokenValidityDuration)
	}
	if c.RateLimitMaxFailures <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("config: rate limit needs positive failures and window")
	}
	switch strings.ToLower(c.LoginType) {
	case LoginTypeUsername, LoginTypeEmail, LoginTypePhone, LoginTypeAny:
	default:
		return fmt.Errorf("config: unknown login type %q", c.LoginType)
	}
	if c.MaxTags < 0 {
		return fmt.Errorf("config: max tags must not be negative")
	}
	return nil
}
