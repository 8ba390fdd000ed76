/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"github.com/ssgreg/logf"
)

// StringMasker masks secrets in strings.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger masks secrets in messages and in string, bytes and error fields.
// Signed requests carry api keys and signatures in URLs, so any logged URL or
// transport error may leak them without masking.
type MaskingLogger struct {
	delegate FieldLogger
	masker   StringMasker
}

var _ FieldLogger = (*MaskingLogger)(nil)

// NewMaskingLogger wraps delegate so that every entry passes through masker.
func NewMaskingLogger(delegate FieldLogger, masker StringMasker) FieldLogger {
	return &MaskingLogger{delegate, masker}
}

// With returns a new logger with the given additional fields.
func (l *MaskingLogger) With(fs ...Field) FieldLogger {
	return &MaskingLogger{l.delegate.With(l.maskFields(fs)...), l.masker}
}

// Debug logs message at "debug" level.
func (l *MaskingLogger) Debug(text string, fs ...Field) {
	l.delegate.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

// Info logs message at "info" level.
func (l *MaskingLogger) Info(text string, fs ...Field) {
	l.delegate.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

// Warn logs message at "warn" level.
func (l *MaskingLogger) Warn(text string, fs ...Field) {
	l.delegate.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

// Error logs message at "error" level.
func (l *MaskingLogger) Error(text string, fs ...Field) {
	l.delegate.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

// AtLevel calls fn only if the level is enabled.
func (l *MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.delegate.AtLevel(level, func(logFunc LogFunc) {
		fn(func(text string, fs ...Field) {
			logFunc(l.masker.Mask(text), l.maskFields(fs)...)
		})
	})
}

// WithLevel returns a new logger with additional level check.
func (l *MaskingLogger) WithLevel(level Level) FieldLogger {
	return &MaskingLogger{l.delegate.WithLevel(level), l.masker}
}

// maskFields returns fields as is if nothing was masked.
func (l *MaskingLogger) maskFields(fields []Field) []Field {
	var masked []Field
	for i := range fields {
		field, changed := l.maskField(fields[i])
		if !changed {
			continue
		}
		if masked == nil {
			masked = make([]Field, len(fields))
			copy(masked, fields)
		}
		masked[i] = field
	}
	if masked == nil {
		return fields
	}
	return masked
}

func (l *MaskingLogger) maskField(field Field) (Field, bool) {
	switch field.Type {
	case logf.FieldTypeBytesToString:
		s := string(field.Bytes)
		if m := l.masker.Mask(s); m != s {
			return String(field.Key, m), true
		}
	case logf.FieldTypeBytes:
		s := string(field.Bytes)
		if m := l.masker.Mask(s); m != s {
			return logf.ConstBytes(field.Key, []byte(m)), true
		}
	case logf.FieldTypeError:
		if err, ok := field.Any.(error); ok && err != nil {
			s := err.Error()
			if m := l.masker.Mask(s); m != s {
				return logf.NamedError(field.Key, maskedError(m)), true
			}
		}
	}
	return field, false
}

// maskedError replaces the original error, so its chain is not exposed to the encoder.
type maskedError string

func (e maskedError) Error() string {
	return string(e)
}
