package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/bundler"
	"github.com/rohmanhakim/vendor-bundler/internal/cache"
	"github.com/rohmanhakim/vendor-bundler/internal/compiler"
	"github.com/rohmanhakim/vendor-bundler/internal/config"
	"github.com/rohmanhakim/vendor-bundler/internal/fetcher"
	"github.com/rohmanhakim/vendor-bundler/internal/logging"
	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile     string
	outFile     string
	mapFile     string
	cacheDir    string
	compilerBin string
	backendName string
	userAgent   string
	referer     string
	timeout     time.Duration
	dryRun      bool
	logLevel    string
	logFormat   string
	logFile     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vendor-bundler [flags] SOURCE...",
	Short: "Bundle third-party JavaScript into one minified file.",
	Long: `vendor-bundler takes an ordered list of JavaScript sources, URLs or local
paths, and compiles them into a single minified bundle with a source map.

Remote sources are downloaded once into a local cache directory and reused
on every later run. Local paths are handed to the compiler untouched.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// An interrupt cancels the in-flight download or compiler process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := ExecuteArgs(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// ExecuteArgs runs the command tree with explicit arguments and streams.
// Errors are printed to stderr before being returned.
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		if failure.SeverityOf(err) == failure.SeverityRecoverable {
			fmt.Fprintln(stderr, "The failure looks transient; rerunning the same command may succeed.")
		}
		return err
	}
	return nil
}

func init() {
	// Assigned here rather than in the literal: runBundle reaches rootCmd
	// through lookupFlag, which would otherwise be an initialization cycle.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runBundle(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/vendor-bundler.json)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for downloaded sources (default .vendor-cache next to the executable)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "User-Agent header for downloads")
	rootCmd.PersistentFlags().StringVar(&referer, "referer", "", "Referer header for downloads")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for a single download (0 for none)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default text)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	rootCmd.Flags().StringVarP(&outFile, "out-file", "O", config.DefaultOutFile, "output bundle path")
	rootCmd.Flags().StringVarP(&mapFile, "map-file", "M", config.DefaultMapFile, "output source map path")
	rootCmd.Flags().StringVar(&compilerBin, "compiler", "", "closure compiler executable (default closure-compiler)")
	rootCmd.Flags().StringVar(&backendName, "backend", "", "compiler backend: closure or esbuild (default closure)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the compiler command without downloading or compiling")

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func runBundle(ctx context.Context, stdout, stderr io.Writer, sources []string) error {
	cfg, err := InitConfigWithError(sources)
	if err != nil {
		return err
	}

	logger, err := logging.InitLogger(logging.Options{
		Level:    cfg.LogLevel(),
		Format:   cfg.LogFormat(),
		FilePath: cfg.LogFile(),
		Console:  stderr,
	})
	if err != nil {
		return err
	}
	sink := metadata.NewLogRecorder(logger)

	c, err := compiler.New(cfg.Backend(), cfg.CompilerBin(), compiler.ExecRunner{Stdout: stdout, Stderr: stderr})
	if err != nil {
		return err
	}

	b := bundler.NewBundler(newResolver(cfg, sink), c, sink, logger)

	logger.WithFields(logging.RunFields(
		len(cfg.Sources()),
		cfg.OutFile(),
		cfg.MapFile(),
		string(cfg.Backend()),
		cfg.DryRun(),
	)).Debug("Starting bundle")

	result, err := b.Run(ctx, bundler.Request{
		Sources: cfg.Sources(),
		OutFile: cfg.OutFile(),
		MapFile: cfg.MapFile(),
		DryRun:  cfg.DryRun(),
	})
	if err != nil {
		return err
	}

	if result.DryRun() {
		fmt.Fprintln(stdout, strings.Join(result.Command(), " "))
		return nil
	}

	logger.WithFields(logrus.Fields{
		"out_file":   cfg.OutFile(),
		"map_file":   cfg.MapFile(),
		"downloads":  result.Downloads(),
		"cache_hits": result.CacheHits(),
		"local":      result.Local(),
	}).Info("Bundle written")
	return nil
}

func newResolver(cfg config.Config, sink metadata.MetadataSink) *cache.Resolver {
	client := &http.Client{Timeout: cfg.Timeout()}
	return cache.NewResolver(
		cfg.CacheDir(),
		fetcher.NewHTTPFetcher(sink, client),
		sink,
		cache.WithUserAgent(cfg.UserAgent()),
		cache.WithReferer(cfg.Referer()),
	)
}

// InitConfigWithError layers the configuration, lowest precedence first:
// defaults, config file, VENDOR_BUNDLER_* environment, then flags.
// Positional sources replace any sources listed in the config file.
func InitConfigWithError(sources []string) (config.Config, error) {
	configBuilder, err := newConfigBuilder(sources)
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newConfigBuilder(sources []string) (*config.Config, error) {
	configBuilder := config.WithDefault(nil)
	if cfgFile != "" {
		fromFile, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = fromFile
	}

	if len(sources) > 0 {
		configBuilder = configBuilder.WithSources(sources)
	}

	overrides, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}
	configBuilder = configBuilder.WithEnvOverrides(overrides)

	// Override with CLI flag values that were set explicitly, even when
	// they match the default
	if flagChanged("out-file") {
		configBuilder = configBuilder.WithOutFile(outFile)
	}

	if flagChanged("map-file") {
		configBuilder = configBuilder.WithMapFile(mapFile)
	}

	if flagChanged("cache-dir") {
		configBuilder = configBuilder.WithCacheDir(cacheDir)
	}

	if flagChanged("compiler") {
		configBuilder = configBuilder.WithCompilerBin(compilerBin)
	}

	if flagChanged("backend") {
		configBuilder = configBuilder.WithBackend(compiler.Backend(backendName))
	}

	if flagChanged("user-agent") {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if flagChanged("referer") {
		configBuilder = configBuilder.WithReferer(referer)
	}

	if flagChanged("timeout") {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if flagChanged("dry-run") {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}

	if flagChanged("log-level") {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if flagChanged("log-format") {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	if flagChanged("log-file") {
		configBuilder = configBuilder.WithLogFile(logFile)
	}

	return configBuilder, nil
}

func lookupFlag(name string) *pflag.Flag {
	if f := rootCmd.PersistentFlags().Lookup(name); f != nil {
		return f
	}
	return rootCmd.Flags().Lookup(name)
}

// flagChanged reports whether name was given on the command line (or set
// through a Set...ForTest helper).
func flagChanged(name string) bool {
	f := lookupFlag(name)
	return f != nil && f.Changed
}

// ResetFlags restores every flag to its default and clears its changed state.
func ResetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	rootCmd.Flags().VisitAll(reset)
}

// setFlagForTest marks name as explicitly set, the same way parsing would.
func setFlagForTest(name, value string) {
	f := lookupFlag(name)
	if f == nil {
		panic("unknown flag " + name)
	}
	if err := f.Value.Set(value); err != nil {
		panic(err)
	}
	f.Changed = true
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	setFlagForTest("config-file", path)
}

func SetOutFileForTest(path string) {
	setFlagForTest("out-file", path)
}

func SetMapFileForTest(path string) {
	setFlagForTest("map-file", path)
}

func SetCacheDirForTest(dir string) {
	setFlagForTest("cache-dir", dir)
}

func SetCompilerForTest(bin string) {
	setFlagForTest("compiler", bin)
}

func SetBackendForTest(name string) {
	setFlagForTest("backend", name)
}

func SetUserAgentForTest(agent string) {
	setFlagForTest("user-agent", agent)
}

func SetRefererForTest(ref string) {
	setFlagForTest("referer", ref)
}

func SetTimeoutForTest(t time.Duration) {
	setFlagForTest("timeout", t.String())
}

func SetDryRunForTest(dry bool) {
	setFlagForTest("dry-run", strconv.FormatBool(dry))
}
