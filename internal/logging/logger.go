package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// IsKnownFormat reports whether format can be passed to InitLogger.
func IsKnownFormat(format string) bool {
	return format == FormatText || format == FormatJSON
}

type Options struct {
	Level  string
	Format string
	// FilePath enables rotated file output. Empty writes to Console.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
	// Console is the stream used without a file, and as the fallback when
	// the file cannot be opened. Nil means os.Stderr.
	Console io.Writer
}

// InitLogger builds the process logger. An empty level means info.
func InitLogger(opts Options) (*logrus.Logger, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	formatter, err := buildFormatter(opts.Format)
	if err != nil {
		return nil, err
	}

	output, outErr := buildOutput(opts)

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(formatter)

	if outErr != nil {
		logger.WithFields(BaseFields("logger_fallback", opts.FilePath)).Warn(outErr.Error())
	}

	return logger, nil
}

func buildFormatter(format string) (logrus.Formatter, error) {
	switch format {
	case FormatText, "":
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}, nil
	case FormatJSON:
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// buildOutput falls back to the console writer when the log directory
// cannot be created, and returns the reason alongside it.
func buildOutput(opts Options) (io.Writer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.FilePath == "" {
		return console, nil
	}

	dir := filepath.Dir(opts.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return console, fmt.Errorf("create log directory: %w", err)
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
		LocalTime:  true,
	}, nil
}
