// Package logger is a small leveled, field-tagging logger used
// throughout the daemon. It deliberately wraps the standard library's
// log.Logger rather than reaching for a third-party logging framework.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a leveled logger with chainable structured fields.
type Logger struct {
	level  Level
	logger *log.Logger
	fields map[string]interface{}
}

// Config configures a new Logger.
type Config struct {
	Level  Level
	Output io.Writer
}

// New returns a Logger at INFO level writing to stdout.
func New() *Logger {
	return NewWithConfig(Config{Level: INFO, Output: os.Stdout})
}

// NewWithConfig returns a Logger built from config.
func NewWithConfig(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Logger{
		level:  config.Level,
		logger: log.New(config.Output, "", 0),
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a derived Logger carrying the given key/value pairs
// on every subsequent call, in addition to any fields already attached.
func (l *Logger) WithFields(keyVals ...interface{}) *Logger {
	derived := &Logger{
		level:  l.level,
		logger: l.logger,
		fields: make(map[string]interface{}, len(l.fields)+len(keyVals)/2),
	}
	for k, v := range l.fields {
		derived.fields[k] = v
	}
	for i := 0; i+1 < len(keyVals); i += 2 {
		derived.fields[fmt.Sprintf("%v", keyVals[i])] = keyVals[i+1]
	}
	return derived
}

// WithField is WithFields for a single pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(key, value)
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(DEBUG, msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(INFO, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(WARN, msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(ERROR, msg, kv...) }

// Fatal logs at ERROR and exits the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.log(ERROR, msg, kv...)
	os.Exit(1)
}

func (l *Logger) log(level Level, msg string, kv ...interface{}) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")

	allFields := make(map[string]interface{}, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		allFields[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		allFields[fmt.Sprintf("%v", kv[i])] = kv[i+1]
	}

	l.logger.Print(formatLogLine(timestamp, level, msg, allFields))
}

func formatLogLine(timestamp string, level Level, msg string, fields map[string]interface{}) string {
	parts := []string{fmt.Sprintf("[%s]", timestamp), fmt.Sprintf("[%s]", level.String()), msg}

	if len(fields) > 0 {
		fieldParts := make([]string, 0, len(fields))
		for key, value := range fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", key, formatValue(value)))
		}
		parts = append(parts, fmt.Sprintf("| %s", strings.Join(fieldParts, " ")))
	}

	return strings.Join(parts, " ")
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, " ") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("2006-01-02T15:04:05Z07:00")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Logger) SetLevel(level Level) { l.level = level }
func (l *Logger) GetLevel() Level      { return l.level }

var global = New()

func Debug(msg string, kv ...interface{}) { global.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { global.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { global.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { global.Error(msg, kv...) }
func Fatal(msg string, kv ...interface{}) { global.Fatal(msg, kv...) }

func WithFields(kv ...interface{}) *Logger             { return global.WithFields(kv...) }
func WithField(key string, value interface{}) *Logger  { return global.WithField(key, value) }
func SetLevel(level Level)                             { global.SetLevel(level) }

// ParseLevel parses a case-insensitive level name.
func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", level)
	}
}
