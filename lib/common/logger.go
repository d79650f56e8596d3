package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
)

// Names of the loggers used across stash. Every package fetches its logger
// with logger.GetLogger(<name>) and InitLoggers configures all of them.
const (
	LoggerPersist = "persist"
	LoggerStore   = "store"
	LoggerState   = "state"
	LoggerCLI     = "cli"
)

// --------------------------------------------------------------------------
// Logger (logger.ILogger)
// --------------------------------------------------------------------------

// levelLabels are the fixed width labels written in front of each line
var levelLabels = map[logger.LogLevel]string{
	logger.DEBUG:   "DEBUG",
	logger.INFO:    "INFO",
	logger.WARNING: "WARN",
	logger.ERROR:   "ERROR",
}

// stashLogger writes "<date> <time> LEVEL | name | message" lines and drops
// everything above its level
type stashLogger struct {
	name  string
	level logger.LogLevel
	out   *log.Logger
}

func newStashLogger(name string, w io.Writer) *stashLogger {
	return &stashLogger{
		name:  name,
		level: logger.INFO,
		out:   log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *stashLogger) SetLevel(level logger.LogLevel) { l.level = level }

func (l *stashLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, format, args)
}

func (l *stashLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, format, args)
}

func (l *stashLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, format, args)
}

func (l *stashLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, format, args)
}

// Panicf always panics, CRITICAL is the lowest level
func (l *stashLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func (l *stashLogger) write(level logger.LogLevel, format string, args []interface{}) {
	if l.level < level {
		return
	}
	l.out.Printf("%-5s | %-8s | %s", levelLabels[level], l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger is the logger.Factory installed by InitLoggers. It writes to
// stderr, stdout belongs to the command output.
func CreateLogger(pkgName string) logger.ILogger {
	return newStashLogger(pkgName, os.Stderr)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel maps a --log-level value to a logger.LogLevel. "warn" and
// "warning" are both accepted.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// InitLoggers routes dragonboat's logger registry through CreateLogger and sets
// the configured level on the persist, store, state and cli loggers.
func InitLoggers(config PersistConfig) error {
	level, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range []string{LoggerPersist, LoggerStore, LoggerState, LoggerCLI} {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
