// Package logger provides operational logging on stderr, keeping stdout
// clean for data output. Messages go through logrus so the same calls can
// render as plain CLI lines or as JSON records in the serverless runtime.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// statusField marks entries written by Successf
const statusField = "status"

// Logger handles operational logging
type Logger struct {
	entry *logrus.Entry
	quiet bool
	debug bool
}

// New creates a logger that writes plain lines to stderr
func New(quiet, debug bool) *Logger {
	return newLogger(os.Stderr, &plainFormatter{}, quiet, debug)
}

// NewWithWriter creates a plain logger writing to w
func NewWithWriter(w io.Writer, quiet, debug bool) *Logger {
	return newLogger(w, &plainFormatter{}, quiet, debug)
}

// NewJSON creates a logger that writes JSON records to stderr
func NewJSON(debug bool) *Logger {
	return newLogger(os.Stderr, jsonFormatter(), false, debug)
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{DisableHTMLEscape: true}
}

func newLogger(w io.Writer, formatter logrus.Formatter, quiet, debug bool) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(formatter)
	// Filtering happens in the methods below so debug output survives quiet mode
	base.SetLevel(logrus.DebugLevel)

	return &Logger{
		entry: logrus.NewEntry(base),
		quiet: quiet,
		debug: debug,
	}
}

// With returns a logger that attaches key=value to every message
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		entry: l.entry.WithField(key, value),
		quiet: l.quiet,
		debug: l.debug,
	}
}

// Infof logs an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if !l.quiet {
		l.entry.Infof(format, args...)
	}
}

// Successf logs a success message
func (l *Logger) Successf(format string, args ...interface{}) {
	if !l.quiet {
		l.entry.WithField(statusField, "ok").Infof(format, args...)
	}
}

// Warningf logs a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if !l.quiet {
		l.entry.Warnf(format, args...)
	}
}

// Errorf logs an error message (always shown, even in quiet mode)
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debugf logs a debug message (only shown when debug mode is enabled)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, args...)
	}
}

// Println prints a blank line (for spacing)
func (l *Logger) Println() {
	if l.quiet {
		return
	}
	if _, ok := l.entry.Logger.Formatter.(*plainFormatter); ok {
		_, _ = fmt.Fprintln(l.entry.Logger.Out)
	}
}

// plainFormatter renders entries the way the CLI always printed them:
// a level prefix, the message and any fields as trailing key=value pairs.
type plainFormatter struct{}

func (f *plainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	switch entry.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		b.WriteString("DEBUG: ")
	case logrus.WarnLevel:
		b.WriteString("Warning: ")
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		b.WriteString("Error: ")
	default:
		if entry.Data[statusField] == "ok" {
			b.WriteString("✓ ")
		}
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == statusField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
