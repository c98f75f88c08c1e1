// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"futuresbot/internal/config"
)

// DebugFile is the name of the debug diary inside the log directory
const DebugFile = "debug.log"

// Logger is the process logger plus the file backing it, if any
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds the logger. In debug mode every record down to debug level is
// appended as JSON to <dir>/debug.log so the terminal stays clean for prompts.
// Otherwise records at the configured level go to stderr.
func New(cfg config.LoggingConfig, debug bool) (*Logger, error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if debug {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", cfg.Dir, err)
		}
		path := filepath.Join(cfg.Dir, DebugFile)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open debug log %s: %w", path, err)
		}
		logger := zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
		return &Logger{Logger: logger, file: f}, nil
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: newConsole(os.Stderr, level)}, nil
}

// Close closes the debug diary
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a config level to zerolog. Empty means warn.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

func newConsole(out *os.File, level zerolog.Level) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(out.Fd()),
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
