package logger

import "fmt"

// Info logs a formatted message at info level
func Info(format string, args ...any) {
	zlog.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a formatted message at warn level
func Warn(format string, args ...any) {
	zlog.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs a formatted message at error level
func Error(format string, args ...any) {
	zlog.Error().Msg(fmt.Sprintf(format, args...))
}

// Debug logs a formatted message at debug level
func Debug(format string, args ...any) {
	zlog.Debug().Msg(fmt.Sprintf(format, args...))
}
