/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ssgreg/logf"
	"github.com/stretchr/testify/require"
)

func writeEntries(cfg *Config, level Level, fn func(logger FieldLogger)) string {
	var buf bytes.Buffer
	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender: newAppenderWithWriter(cfg, &buf),
	})
	fn(&LogfAdapter{logf.NewLogger(toLogfLevel(level), channel)})
	closeFunc()
	return buf.String()
}

func TestLogfAdapterJSON(t *testing.T) {
	out := writeEntries(&Config{Format: FormatJSON}, LevelInfo, func(logger FieldLogger) {
		logger.Debug("skipped")
		logger.With(String("rule", "orders")).Error("call failed", Error(errors.New("boom")), Int("weight", 5))
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "call failed", entry["msg"])
	require.Equal(t, "orders", entry["rule"])
	require.Equal(t, "boom", entry["error"])
	require.EqualValues(t, 5, entry["weight"])
	require.Contains(t, entry, "time")
}

func TestLogfAdapterText(t *testing.T) {
	out := writeEntries(&Config{Format: FormatText, NoColor: true}, LevelDebug, func(logger FieldLogger) {
		logger.AtLevel(LevelWarn, func(logFunc LogFunc) {
			logFunc("call is rejected", String("rule", "orders"))
		})
	})
	require.Contains(t, out, "call is rejected")
	require.Contains(t, out, "orders")
}

func TestLogfAdapterWithLevel(t *testing.T) {
	out := writeEntries(&Config{Format: FormatJSON}, LevelDebug, func(logger FieldLogger) {
		logger = logger.WithLevel(LevelWarn)
		logger.Info("skipped")
		logger.Warn("kept")
	})
	require.NotContains(t, out, "skipped")
	require.Contains(t, out, "kept")
}

func TestToLogfLevel(t *testing.T) {
	require.Equal(t, logf.LevelError, toLogfLevel(LevelError))
	require.Equal(t, logf.LevelWarn, toLogfLevel(LevelWarn))
	require.Equal(t, logf.LevelInfo, toLogfLevel(LevelInfo))
	require.Equal(t, logf.LevelDebug, toLogfLevel(LevelDebug))
	require.Equal(t, logf.LevelInfo, toLogfLevel("unknown"))
}

func TestNewDisabledLogger(t *testing.T) {
	logger := NewDisabledLogger()
	require.NotPanics(t, func() {
		logger.With(String("k", "v")).Error("nothing happens")
	})
}
