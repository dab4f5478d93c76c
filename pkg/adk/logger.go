package adk

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

var DebugEnabled bool

// Diagnostics receives Debugf, Infof and Warnf output. Reports own standard out.
var Diagnostics io.Writer = os.Stderr

// Debugf prints messages only if DebugEnabled is true
func Debugf(format string, args ...interface{}) {
	if DebugEnabled {
		fmt.Fprintf(Diagnostics, "[DEBUG] "+format+"\n", args...)
	}
}

// Infof prints messages always
func Infof(format string, args ...interface{}) {
	fmt.Fprintf(Diagnostics, format+"\n", args...)
}

func Warnf(format string, args ...interface{}) {
	fmt.Fprintf(Diagnostics, "[WARN] "+format+"\n", args...)
}

// Logger is the structured logging contract used by the orchestrator.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}

// ConsoleLogger writes "LEVEL msg key=value ..." lines. Debug lines are only
// written while DebugEnabled is set.
type ConsoleLogger struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleLogger logs to w, or to standard error when w is nil so that
// report output on standard out stays clean.
func NewConsoleLogger(w io.Writer) *ConsoleLogger {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleLogger{out: w}
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) {
	if DebugEnabled {
		l.log("DEBUG", msg, fields)
	}
}

func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields) }

func (l *ConsoleLogger) log(level, msg string, fields []Field) {
	var sb strings.Builder
	sb.WriteString(level)
	sb.WriteString(" ")
	sb.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&sb, " %s=%v", f.Key, f.Value)
	}
	sb.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, sb.String())
}
