package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NABZ_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "data", c.DataDir)
	assert.True(t, c.HashPartitionNames)
	assert.Equal(t, 24*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, 5, c.RateLimitMaxFailures)
	assert.Equal(t, time.Hour, c.RateLimitWindow)
	assert.Equal(t, LoginTypeUsername, c.LoginType)
	assert.True(t, c.EnableRegistration)
	assert.Equal(t, 4, c.MinUsernameLength)
	assert.Equal(t, 8, c.MinPasswordLength)
	assert.Contains(t, c.RestrictedUsernames, "admin")
	assert.Equal(t, 7, c.MaxTags)
}

func TestLoadConfig_DerivesPaths(t *testing.T) {
	isolateEnv(t)

	c, err := LoadConfig([]string{"-d", "/srv/nabz"})
	require.NoError(t, err)

	assert.Equal(t, "/srv/nabz", c.DataDir)
	assert.Equal(t, filepath.Join("/srv/nabz", "users.db"), c.IdentityDBPath)
	assert.Equal(t, filepath.Join("/srv/nabz", "databases"), c.PartitionsDir)
	assert.Equal(t, filepath.Join("/srv/nabz", "ratelimit"), c.RateLimitDBPath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	isolateEnv(t)

	path := writeTempJSON(t, map[string]any{
		"data_dir":                "/from/json",
		"secret_key":              "json-secret",
		"token_validity_duration": "2h",
		"rate_limit_window":       "30m",
		"max_tags":                3,
		"login_type":              "email",
		"restricted_usernames":    []string{"root"},
	})

	t.Setenv("NABZ_SECRET_KEY", "env-secret")
	t.Setenv("NABZ_MAX_TAGS", "5")

	c, err := LoadConfig([]string{"-c", path, "-t", "90m"})
	require.NoError(t, err)

	assert.Equal(t, "/from/json", c.DataDir, "json overrides default")
	assert.Equal(t, "env-secret", c.SecretKey, "env overrides json")
	assert.Equal(t, 5, c.MaxTags, "env overrides json")
	assert.Equal(t, 90*time.Minute, c.TokenValidityDuration, "flag overrides json")
	assert.Equal(t, 30*time.Minute, c.RateLimitWindow)
	assert.Equal(t, LoginTypeEmail, c.LoginType)
	assert.Empty(t, cmp.Diff([]string{"root"}, c.RestrictedUsernames))
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("NABZ_HASH_PARTITION_NAMES=false\nNABZ_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("NABZ_ENV_FILE", envFile)

	c, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.False(t, c.HashPartitionNames)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("invalid JSON", func(t *testing.T) {
		isolateEnv(t)
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		_, err := LoadConfig([]string{"-c", bad})
		require.Error(t, err)
	})

	t.Run("missing JSON file", func(t *testing.T) {
		isolateEnv(t)
		_, err := LoadConfig([]string{"-config", filepath.Join(t.TempDir(), "nope.json")})
		require.Error(t, err)
	})

	t.Run("bad env int", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("NABZ_MAX_TAGS", "many")
		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("unknown login type", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("NABZ_LOGIN_TYPE", "fax")
		_, err := LoadConfig(nil)
		require.Error(t, err)
	})
}

func TestParseFlags(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	err := parseFlags(c, []string{"-d", "dir", "-s", "secret", "-t", "1h", "-l", "warn", "-hash=false", "-r=false", "-unrelated", "x"})
	require.NoError(t, err)

	assert.Equal(t, "dir", c.DataDir)
	assert.Equal(t, "secret", c.SecretKey)
	assert.Equal(t, time.Hour, c.TokenValidityDuration)
	assert.Equal(t, "warn", c.LogLevel)
	assert.False(t, c.HashPartitionNames)
	assert.False(t, c.EnableRegistration)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m"`), &d))
	assert.Equal(t, time.Minute, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, d.Duration)

	require.Error(t, json.Unmarshal([]byte(`true`), &d))
}
