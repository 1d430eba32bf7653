package observe

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const TimeFormat = "2006-01-02 15:04:05"

// New returns a human-readable logger: "<time> [LEVEL] message key=value...".
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: TimeFormat,
		FormatLevel: func(i interface{}) string {
			s, _ := i.(string)
			return "[" + strings.ToUpper(s) + "]"
		},
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// C returns a child logger tagged with a component name.
func C(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
