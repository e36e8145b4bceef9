package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/nabzkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string     data directory
//	-s string     JWT HMAC secret key
//	-t duration   access token validity (e.g. 24h)
//	-l string     log level
//	-hash bool    hash-derived partition names
//	-r bool       enable registration
//
// Only these flags are picked out of args (flagx.FilterArgs) so that other
// components can define their own.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-s", "-t", "-l", "-hash", "-r"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidityDuration, "t", config.TokenValidityDuration, "access token validity")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.HashPartitionNames, "hash", config.HashPartitionNames, "hash-derived partition names")
	fs.BoolVar(&config.EnableRegistration, "r", config.EnableRegistration, "enable registration")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}
	return nil
}
