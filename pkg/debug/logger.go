package debug

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type LoggerOptions struct {
	Debug     bool
	Color     bool
	Component string
}

// NewLogger builds the process logger: JSON lines on w, or a console writer when Color is set.
func NewLogger(w io.Writer, opts LoggerOptions) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	if opts.Color {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(w).Level(level).Hook(TimeHook{})
	if opts.Debug {
		logger = logger.Hook(CallerHook{WithColor: opts.Color})
	}

	if opts.Component != "" {
		logger = logger.With().Str("component", opts.Component).Logger()
	}

	return logger
}

// WithLogger attaches a logger to ctx, for retrieval with zerolog.Ctx.
func WithLogger(ctx context.Context, w io.Writer, opts LoggerOptions) context.Context {
	return NewLogger(w, opts).WithContext(ctx)
}

type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if t.Format == "" {
		e.Str("time", time.Now().Format("2006-01-02T15:04:05.0000Z"))
		return
	}
	e.Str("time", time.Now().Format(t.Format))
}

type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(3)
	if !ok {
		return
	}

	pkg := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		pkg = PackageOfFunc(fn.Name())
	}

	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// PackageOfFunc strips the function and receiver from a fully qualified function name.
func PackageOfFunc(name string) string {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	if dot := strings.IndexByte(name[lastSlash:], '.'); dot >= 0 {
		return name[:lastSlash+dot]
	}

	return name
}

func FormatCaller(pkg, path string, number int, colorize bool) string {
	file := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		file = path[idx+1:]
	}

	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", number)
		sep := color.New(color.Faint).Sprint(":")

		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}

	return fmt.Sprintf("%s:%s:%d", pkg, file, number)
}
