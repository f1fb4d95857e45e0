package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/cache"
	"github.com/rohmanhakim/vendor-bundler/internal/compiler"
	"github.com/rohmanhakim/vendor-bundler/internal/fetcher"
	"github.com/rohmanhakim/vendor-bundler/internal/logging"
)

const (
	DefaultOutFile = "vendor.min.js"
	DefaultMapFile = "vendor.min.js.map"
)

type Config struct {
	//===============
	// Inputs
	//===============
	// Source references in bundle order. URLs are fetched through the cache,
	// anything else is passed to the compiler as a local path.
	sources []string

	//===============
	// Output
	//===============
	outFile string
	mapFile string
	// Print the compiler command without fetching or compiling
	dryRun bool

	//===============
	// Cache
	//===============
	// Directory that holds downloaded sources. Defaults to .vendor-cache
	// next to the executable.
	cacheDir string

	//===============
	// Compiler
	//===============
	backend compiler.Backend
	// Executable used by the closure backend
	compilerBin string

	//===============
	// Fetch
	//===============
	userAgent string
	referer   string
	// Upper bound for a single download. Zero means no limit.
	timeout time.Duration

	//===============
	// Logging
	//===============
	logLevel  string
	logFormat string
	// Rotated log file. Empty means stderr.
	logFile string
}

type configDTO struct {
	Sources   []string `json:"sources,omitempty"`
	OutFile   string   `json:"outFile,omitempty"`
	MapFile   string   `json:"mapFile,omitempty"`
	DryRun    bool     `json:"dryRun,omitempty"`
	CacheDir  string   `json:"cacheDir,omitempty"`
	Backend   string   `json:"backend,omitempty"`
	Compiler  string   `json:"compiler,omitempty"`
	UserAgent string   `json:"userAgent,omitempty"`
	Referer   string   `json:"referer,omitempty"`
	// Go duration string, e.g. "30s"
	Timeout   string `json:"timeout,omitempty"`
	LogLevel  string `json:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty"`
	LogFile   string `json:"logFile,omitempty"`
}

func newConfigFromDTO(dto configDTO) (*Config, error) {
	cfg := WithDefault(dto.Sources)

	// only override if non-zero value is provided
	if dto.OutFile != "" {
		cfg.outFile = dto.OutFile
	}
	if dto.MapFile != "" {
		cfg.mapFile = dto.MapFile
	}
	cfg.dryRun = dto.DryRun
	if dto.CacheDir != "" {
		cfg.cacheDir = dto.CacheDir
	}
	if dto.Backend != "" {
		cfg.backend = compiler.Backend(dto.Backend)
	}
	if dto.Compiler != "" {
		cfg.compilerBin = dto.Compiler
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.Referer != "" {
		cfg.referer = dto.Referer
	}
	if dto.Timeout != "" {
		timeout, err := time.ParseDuration(dto.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: timeout: %s", ErrConfigParsingFail, err.Error())
		}
		cfg.timeout = timeout
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		cfg.logFormat = dto.LogFormat
	}
	if dto.LogFile != "" {
		cfg.logFile = dto.LogFile
	}

	return cfg, nil
}

// WithConfigFile returns a builder holding the defaults overlaid with the
// JSON file at path. The caller still has to Build it, so flags and
// environment can be applied on top.
func WithConfigFile(path string) (*Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with the provided sources and default
// values for all other fields.
func WithDefault(sources []string) *Config {
	defaultConfig := Config{
		sources:     sources,
		outFile:     DefaultOutFile,
		mapFile:     DefaultMapFile,
		dryRun:      false,
		cacheDir:    DefaultCacheDir(),
		backend:     compiler.BackendClosure,
		compilerBin: compiler.DefaultClosureBinary,
		userAgent:   fetcher.DefaultUserAgent,
		referer:     fetcher.DefaultReferer,
		timeout:     0,
		logLevel:    "info",
		logFormat:   logging.FormatText,
		logFile:     "",
	}
	return &defaultConfig
}

// DefaultCacheDir is the cache directory next to the running executable.
// It falls back to the working directory when the executable path is unknown.
func DefaultCacheDir() string {
	exe, err := os.Executable()
	if err != nil {
		return cache.DefaultDirName
	}
	return filepath.Join(filepath.Dir(exe), cache.DefaultDirName)
}

func (c *Config) WithSources(sources []string) *Config {
	c.sources = sources
	return c
}

func (c *Config) WithOutFile(path string) *Config {
	c.outFile = path
	return c
}

func (c *Config) WithMapFile(path string) *Config {
	c.mapFile = path
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithBackend(backend compiler.Backend) *Config {
	c.backend = backend
	return c
}

func (c *Config) WithCompilerBin(bin string) *Config {
	c.compilerBin = bin
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithReferer(referer string) *Config {
	c.referer = referer
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) WithLogFile(path string) *Config {
	c.logFile = path
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.sources) == 0 {
		return Config{}, fmt.Errorf("%w: at least one source is required", ErrInvalidConfig)
	}
	if c.outFile == "" {
		return Config{}, fmt.Errorf("%w: out file cannot be empty", ErrInvalidConfig)
	}
	if c.mapFile == "" {
		return Config{}, fmt.Errorf("%w: map file cannot be empty", ErrInvalidConfig)
	}
	if filepath.Clean(c.outFile) == filepath.Clean(c.mapFile) {
		return Config{}, fmt.Errorf("%w: out file and map file must differ (%s)", ErrInvalidConfig, c.outFile)
	}
	if c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cache dir cannot be empty", ErrInvalidConfig)
	}
	backend, err := compiler.ParseBackend(string(c.backend))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	c.backend = backend
	if c.backend == compiler.BackendClosure && c.compilerBin == "" {
		return Config{}, fmt.Errorf("%w: compiler binary cannot be empty", ErrInvalidConfig)
	}
	if c.timeout < 0 {
		return Config{}, fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig)
	}
	if !logging.IsKnownFormat(c.logFormat) {
		return Config{}, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.logFormat)
	}

	return *c, nil
}

func (c Config) Sources() []string {
	sources := make([]string, len(c.sources))
	copy(sources, c.sources)
	return sources
}

func (c Config) OutFile() string {
	return c.outFile
}

func (c Config) MapFile() string {
	return c.mapFile
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) CacheDir() string {
	return c.cacheDir
}

func (c Config) Backend() compiler.Backend {
	return c.backend
}

func (c Config) CompilerBin() string {
	return c.compilerBin
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Referer() string {
	return c.referer
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}

func (c Config) LogFile() string {
	return c.logFile
}
