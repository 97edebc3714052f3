package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/adekpp/cli-image-compressor/internal/config"
)

// New returns a logrus.Logger configured from the logging options.
// When a file path is set the log is written as rotated JSON; console
// output stays human readable on stderr so it never mixes with results.
func New(cfg config.LoggingOptions, verbose bool) (*logrus.Logger, error) {
	log := logrus.New()

	level := cfg.Level
	if verbose {
		level = "debug"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(parsed)

	var writers []io.Writer
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	writers = append(writers, os.Stderr)

	if len(writers) > 1 {
		log.SetOutput(io.MultiWriter(writers...))
	} else {
		log.SetOutput(writers[0])
	}

	return log, nil
}

// WithFile returns a logger entry carrying the file context.
func WithFile(log *logrus.Logger, filePath string) *logrus.Entry {
	return log.WithField("file", filePath)
}

// WithFileOperation returns a logger entry with both file and operation context.
func WithFileOperation(log *logrus.Logger, filePath, operation string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"file":      filePath,
		"operation": operation,
	})
}
