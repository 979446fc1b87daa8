package logging

import (
	"log/slog"
	"os"

	"github.com/giygas/tbdose-api/config"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes a console-only logger, or a console and file logger
// when logDir is set, with the default retention.
func InitLogger(logDir string) {
	initLogger(Options{
		Dir:            logDir,
		RetentionWeeks: 4,
		MaxFileSize:    defaultMaxFileSize,
		ConsoleLevel:   slog.LevelInfo,
	})
}

// InitLoggerWithConfig initializes the global logger from the application config
func InitLoggerWithConfig(cfg *config.Config) {
	initLogger(Options{
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		ConsoleLevel:   GetConsoleLogLevel(cfg.Env, cfg.LogLevel, os.Getenv("VERBOSE") != ""),
	})
}

// InitLoggerWithOptions initializes the global logger from explicit options
func InitLoggerWithOptions(opts Options) {
	initLogger(opts)
}

func initLogger(opts Options) {
	if DefaultLoggingService != nil && DefaultLoggingService.rotating != nil {
		_ = DefaultLoggingService.rotating.Close()
	}

	logger, rotating := SetupLogger(opts)
	DefaultLoggingService = &LoggingService{
		Logger:   logger,
		rotating: rotating,
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	err := DefaultLoggingService.rotating.Close()
	DefaultLoggingService.rotating = nil
	return err
}

// Package-level functions for direct access

func logger(level slog.Level) *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	logger(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger(slog.LevelDebug).Debug(msg, args...)
}
