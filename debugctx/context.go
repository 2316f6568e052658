package debugctx

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewLogger builds the process logger. Debug output is emitted only when
// debug is set; otherwise the logger stays at warn level.
func NewLogger(writer io.Writer, debug bool, format string) zerolog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	if strings.TrimSpace(format) != FormatJSON {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339, NoColor: true}
	}

	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx)
}

// Logger returns the context logger, or a disabled one.
func Logger(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		disabled := zerolog.Nop()
		return &disabled
	}
	return zerolog.Ctx(ctx)
}

func Enabled(ctx context.Context) bool {
	logger := Logger(ctx)
	level := logger.GetLevel()
	return level != zerolog.Disabled && level <= zerolog.DebugLevel
}

func Printf(ctx context.Context, format string, args ...any) {
	if !Enabled(ctx) {
		return
	}

	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		return
	}
	Logger(ctx).Debug().Msg(message)
}
