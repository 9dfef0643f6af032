package proc

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultMaxLineBytes bounds a stat line. Real lines are a few hundred
	// bytes; comm is at most 64 bytes even for kernel workers.
	DefaultMaxLineBytes = 4096

	// initialLineBytes is the starting buffer; it grows up to MaxLineBytes.
	initialLineBytes = 1024
)

// Config controls where and how stat files are read.
type Config struct {
	// Root is the procfs mount point.
	Root string `env:"PROCSTAT_ROOT" envDefault:"/proc"`
	// MaxLineBytes is the longest stat line accepted. Longer lines fail with
	// ErrStatTooLong rather than being truncated. Values below 1024 are raised.
	MaxLineBytes int `env:"PROCSTAT_MAX_LINE" envDefault:"4096"`
}

// DefaultConfig reads /proc with the default line limit.
func DefaultConfig() Config {
	return Config{Root: "/proc", MaxLineBytes: DefaultMaxLineBytes}
}

// ConfigFromEnv parses Config from PROCSTAT_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("proc: parse config: %w", err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.Root == "" {
		c.Root = "/proc"
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
	if c.MaxLineBytes < initialLineBytes {
		c.MaxLineBytes = initialLineBytes
	}
	return c
}
