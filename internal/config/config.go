// Package config defines the configuration surface shared by every
// better-fs subcommand: the on-disk store root, compression and chunking
// tunables, and logging options. Flags are bound into viper the way
// gcsfuse's cfg package binds its flag set, so the same keys can be set by
// flag or environment variable. No config file is read.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a better-fs invocation.
type Config struct {
	// StoreDir is the root directory under which cas/ and metadata_db/
	// live (see spec §6 on-disk layout).
	StoreDir string `mapstructure:"store-dir"`

	// CompressionLevel selects the zstd speed/ratio tradeoff for chunk
	// compression: 1=fastest, 2 and 3=zstd's default speed (roughly zstd
	// level 3), 4=best compression.
	CompressionLevel int `mapstructure:"compression-level"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log-level"`

	// LogFile, if set, directs log output to a rotating file via
	// lumberjack instead of stderr.
	LogFile string `mapstructure:"log-file"`

	// UID/GID are the owner reported for every inode by the kernel-bridge
	// adapter (§4.5: a single fixed value).
	UID uint32 `mapstructure:"uid"`
	GID uint32 `mapstructure:"gid"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		StoreDir:         ".betterfs",
		CompressionLevel: 3,
		LogLevel:         "info",
		UID:              uint32(os.Getuid()),
		GID:              uint32(os.Getgid()),
	}
}

// BindFlags registers the shared store/logging flags on flagSet and binds
// them into viper, mirroring gcsfuse's cfg.BindFlags.
func BindFlags(flagSet *pflag.FlagSet) error {
	d := Default()

	flagSet.String("store-dir", d.StoreDir, "Root directory for the content-addressed store and recipe database.")
	flagSet.Int("compression-level", d.CompressionLevel, "zstd encoder level (1-4) used when persisting chunks.")
	flagSet.String("log-level", d.LogLevel, "Minimum log level: debug, info, warn, error.")
	flagSet.String("log-file", "", "If set, write logs to this file (rotated via lumberjack) instead of stderr.")

	for _, name := range []string{"store-dir", "compression-level", "log-level", "log-file"} {
		if err := viper.BindPFlag(name, flagSet.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}

	return nil
}

// Load resolves the final Config from viper state (bound flags and
// BETTERFS_-prefixed environment variables) layered over Default.
func Load() (Config, error) {
	cfg := Default()

	viper.SetEnvPrefix("BETTERFS")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.StoreDir == "" {
		return Config{}, fmt.Errorf("store-dir must not be empty")
	}
	if cfg.CompressionLevel < 1 || cfg.CompressionLevel > 4 {
		return Config{}, fmt.Errorf("compression-level must be between 1 and 4, got %d", cfg.CompressionLevel)
	}

	return cfg, nil
}
