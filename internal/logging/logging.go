package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"nmsweep/internal/config"
)

// Logger owns the log writers so the rotating file can be closed on exit.
type Logger struct {
	zerolog.Logger
	closer io.Closer
}

// New creates a logger writing to stderr
func New() *Logger {
	return NewWithConfig(nil)
}

// NewWithConfig creates a logger honouring level, format and the optional
// rotated log file from cfg.
func NewWithConfig(cfg *config.Config) *Logger {
	return newWithWriter(os.Stderr, cfg)
}

func newWithWriter(out io.Writer, cfg *config.Config) *Logger {
	lc := config.Default().Logging
	if cfg != nil {
		lc = cfg.Logging
	}

	var console io.Writer = out
	if lc.Format != "json" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	writer := console
	var closer io.Closer
	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err == nil {
			lj := &lumberjack.Logger{
				Filename:   lc.File,
				MaxSize:    lc.MaxSizeMB,
				MaxBackups: lc.MaxBackups,
				MaxAge:     lc.MaxAgeDays,
			}
			// The file always gets JSON lines regardless of console format.
			writer = zerolog.MultiLevelWriter(console, lj)
			closer = lj
		}
	}

	zl := zerolog.New(writer).
		Level(parseLevel(lc.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: zl, closer: closer}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
