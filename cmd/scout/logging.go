package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"memecoin-scout/internal/config"
)

// newLogger builds the process logger: console or JSON on stderr, plus an optional rotated
// JSON file. The returned func flushes and closes the file.
func newLogger(cfg config.LoggingConfig) (zerolog.Logger, func()) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	closeFn := func() {}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
			LocalTime:  true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closeFn = func() { _ = file.Close() }
	}

	logger := zerolog.New(out).
		Level(cfg.ZerologLevel()).
		With().
		Timestamp().
		Logger()
	return logger, closeFn
}
