package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds a timestamped logger writing JSON, or console output when pretty.
func NewLogger(out io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// SetupLogging installs the process-wide logger used through zerolog/log.
func SetupLogging(level string, pretty bool) error {
	logger, err := NewLogger(os.Stderr, level, pretty)
	if err != nil {
		return err
	}
	log.Logger = logger
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch name := strings.ToLower(strings.TrimSpace(level)); name {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	default:
		lvl, err := zerolog.ParseLevel(name)
		if err != nil {
			return zerolog.NoLevel, fmt.Errorf("invalid LOG_LEVEL: %q (expected debug|info|warn|error)", level)
		}
		return lvl, nil
	}
}
