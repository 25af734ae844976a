package core

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
)

// DefaultLogger prints pterm-prefixed lines for the operator and mirrors every
// record as structured slog text to a sink (a debug log file, or nowhere).
type DefaultLogger struct {
	level   LogLevel
	handler *slog.Logger
	output  io.Writer
	sink    io.Writer
	attrs   []any
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelTrace, LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewDefaultLogger(output io.Writer, level LogLevel) *DefaultLogger {
	return newDefaultLogger(output, io.Discard, level)
}

func newDefaultLogger(output, sink io.Writer, level LogLevel) *DefaultLogger {
	handler := slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{
		Level: slogLevel(level),
	}))

	return &DefaultLogger{
		level:   level,
		handler: handler,
		output:  output,
		sink:    sink,
	}
}

// WithSink returns a logger that also writes structured records to w.
func (l *DefaultLogger) WithSink(w io.Writer) *DefaultLogger {
	n := newDefaultLogger(l.output, w, l.level)
	n.attrs = l.attrs
	n.handler = n.handler.With(l.attrs...)
	return n
}

// line renders msg with its key/value pairs for the console.
func line(msg string, attrs, args []any) string {
	all := append(append([]any{}, attrs...), args...)
	if len(all) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	return b.String()
}

func (l *DefaultLogger) Trace(msg string, args ...any) {
	if l.level <= LevelTrace {
		pterm.Debug.WithWriter(l.output).Println("TRACE: " + line(msg, l.attrs, args))
		l.handler.Debug(msg, args...)
	}
}

func (l *DefaultLogger) Debug(msg string, args ...any) {
	if l.level <= LevelDebug {
		pterm.Debug.WithWriter(l.output).Println(line(msg, l.attrs, args))
		l.handler.Debug(msg, args...)
	}
}

func (l *DefaultLogger) Info(msg string, args ...any) {
	if l.level <= LevelInfo {
		pterm.Info.WithWriter(l.output).Println(line(msg, l.attrs, args))
		l.handler.Info(msg, args...)
	}
}

func (l *DefaultLogger) Warn(msg string, args ...any) {
	if l.level <= LevelWarn {
		pterm.Warning.WithWriter(l.output).Println(line(msg, l.attrs, args))
		l.handler.Warn(msg, args...)
	}
}

func (l *DefaultLogger) Error(msg string, args ...any) {
	if l.level <= LevelError {
		pterm.Error.WithWriter(l.output).Println(line(msg, l.attrs, args))
		l.handler.Error(msg, args...)
	}
}

func (l *DefaultLogger) With(args ...any) Logger {
	return &DefaultLogger{
		level:   l.level,
		handler: l.handler.With(args...),
		output:  l.output,
		sink:    l.sink,
		attrs:   append(append([]any{}, l.attrs...), args...),
	}
}

func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level = level
}
