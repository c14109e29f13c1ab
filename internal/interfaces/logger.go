// Package interfaces holds the narrow logging contracts the engine, the
// adapter and the mount layers depend on. logger.FullLogger combines them.
package interfaces

// FormatLogger writes debug output; it is silent unless verbose logging is
// on.
type FormatLogger interface {
	Logf(format string, v ...any)
}

type Logger interface {
	Log(v ...any)
}

// ErrorLogger output is never filtered by verbosity.
type ErrorLogger interface {
	Error(v ...any)
}

type ErrorFormatLogger interface {
	Errorf(format string, v ...any)
}

// LoggerCloser releases log files opened by the logger.
type LoggerCloser interface {
	Close() error
}
