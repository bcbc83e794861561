package logger

import "gitlab.com/testhub.net/internal/adapter/logging"

// Logger is the process-wide logger used by the command line entry points.
var Logger = logging.NewZapLogger(false)

// SetDebug swaps the process logger for one that emits debug entries.
func SetDebug(debug bool) {
	Logger = logging.NewZapLogger(debug)
}

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
