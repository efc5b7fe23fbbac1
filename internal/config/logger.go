package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger writes to stderr (console or JSON lines per LogFormat) and, unless
// LogFile is "-", to a size-rotated file. The result also becomes log.Logger.
func SetupLogger(cfg Config) zerolog.Logger {
	var out []io.Writer
	if strings.EqualFold(cfg.LogFormat, "json") {
		out = append(out, os.Stderr)
	} else {
		out = append(out, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if w := rotatingFile(cfg.LogFile); w != nil {
		out = append(out, w)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	logger := zerolog.New(zerolog.MultiLevelWriter(out...)).
		With().Timestamp().Str("svc", "cost-recon").Logger()
	log.Logger = logger
	return logger
}

func rotatingFile(path string) io.Writer {
	if path == "" || path == "-" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}
