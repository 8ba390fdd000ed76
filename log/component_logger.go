/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

// ComponentLogger tags every entry with the "component" field and prefixes messages with the component name.
type ComponentLogger struct {
	delegate FieldLogger
	prefix   string
}

// NewComponentLogger wraps delegate so that entries written by a component are easy to grep.
func NewComponentLogger(delegate FieldLogger, component string) FieldLogger {
	return &ComponentLogger{delegate.With(String("component", component)), "[" + component + "] "}
}

// With returns a new logger with the given additional fields.
func (l *ComponentLogger) With(fs ...Field) FieldLogger {
	return &ComponentLogger{l.delegate.With(fs...), l.prefix}
}

// Debug logs message at "debug" level.
func (l *ComponentLogger) Debug(text string, fs ...Field) {
	l.delegate.Debug(l.prefix+text, fs...)
}

// Info logs message at "info" level.
func (l *ComponentLogger) Info(text string, fs ...Field) {
	l.delegate.Info(l.prefix+text, fs...)
}

// Warn logs message at "warn" level.
func (l *ComponentLogger) Warn(text string, fs ...Field) {
	l.delegate.Warn(l.prefix+text, fs...)
}

// Error logs message at "error" level.
func (l *ComponentLogger) Error(text string, fs ...Field) {
	l.delegate.Error(l.prefix+text, fs...)
}

// AtLevel calls fn if the level is enabled, the passed LogFunc adds the prefix.
func (l *ComponentLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.delegate.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.prefix+msg, fs...)
		})
	})
}

// WithLevel returns a new logger with additional level check.
func (l *ComponentLogger) WithLevel(level Level) FieldLogger {
	return &ComponentLogger{l.delegate.WithLevel(level), l.prefix}
}
