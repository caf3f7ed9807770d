package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func New(environment, level string) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	var writer io.Writer = os.Stdout
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(writer).
		Level(parsedLevel).
		With().
		Timestamp().
		Str("service", "webnovels").
		Logger()

	return logger, nil
}

// Printer adapts a zerolog logger to Printf-style writers such as the gorm logger.
type Printer struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func NewPrinter(logger zerolog.Logger, component string, level zerolog.Level) Printer {
	return Printer{
		logger: logger.With().Str("component", component).Logger(),
		level:  level,
	}
}

func (p Printer) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	if msg == "" {
		return
	}
	p.logger.WithLevel(p.level).Msg(msg)
}
