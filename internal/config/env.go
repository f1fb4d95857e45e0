package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rohmanhakim/vendor-bundler/internal/compiler"
)

// EnvOverrides holds the settings that may come from VENDOR_BUNDLER_*
// variables. Unset variables keep their zero value and leave the builder
// untouched.
type EnvOverrides struct {
	CacheDir  string        `env:"CACHE_DIR"`
	Compiler  string        `env:"COMPILER"`
	Backend   string        `env:"BACKEND"`
	UserAgent string        `env:"USER_AGENT"`
	Referer   string        `env:"REFERER"`
	Timeout   time.Duration `env:"TIMEOUT"`
	LogLevel  string        `env:"LOG_LEVEL"`
	LogFormat string        `env:"LOG_FORMAT"`
	LogFile   string        `env:"LOG_FILE"`
}

const EnvPrefix = "VENDOR_BUNDLER_"

// ParseEnv loads overrides from the process environment.
func ParseEnv() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.ParseWithOptions(&overrides, env.Options{Prefix: EnvPrefix}); err != nil {
		return EnvOverrides{}, fmt.Errorf("%w: parse env: %s", ErrInvalidConfig, err.Error())
	}
	return overrides, nil
}

func (c *Config) WithEnvOverrides(o EnvOverrides) *Config {
	if o.CacheDir != "" {
		c.cacheDir = o.CacheDir
	}
	if o.Compiler != "" {
		c.compilerBin = o.Compiler
	}
	if o.Backend != "" {
		c.backend = compiler.Backend(o.Backend)
	}
	if o.UserAgent != "" {
		c.userAgent = o.UserAgent
	}
	if o.Referer != "" {
		c.referer = o.Referer
	}
	if o.Timeout != 0 {
		c.timeout = o.Timeout
	}
	if o.LogLevel != "" {
		c.logLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.logFormat = o.LogFormat
	}
	if o.LogFile != "" {
		c.logFile = o.LogFile
	}
	return c
}
