/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
)

type clientConfig struct {
	Venue    string
	Timeout  time.Duration
	Symbols  []string
	MaxBytes BytesCount
	Streams  []streamConfig

	keyPrefix string
}

type streamConfig struct {
	Name     string       `mapstructure:"name"`
	Interval TimeDuration `mapstructure:"interval"`
}

func (c *clientConfig) KeyPrefix() string { return c.keyPrefix }

func (c *clientConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("timeout", "30s")
	dp.SetDefault("maxBytes", "1M")
}

func (c *clientConfig) Set(dp DataProvider) error {
	var err error
	if c.Venue, err = dp.GetStringFromSet("venue", []string{"spot", "futures"}, true); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	if c.Symbols, err = dp.GetStringSlice("symbols"); err != nil {
		return err
	}
	if c.MaxBytes, err = dp.GetBytesCount("maxBytes"); err != nil {
		return err
	}
	if c.MaxBytes == 0 {
		return dp.WrapKeyErr("maxBytes", errors.New("must be positive"))
	}
	return dp.UnmarshalKey("streams", &c.Streams, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
	})
}

const clientConfigYAML = `
exchange:
  venue: SPOT
  symbols: [BTCUSDT, ETHUSDT]
  maxBytes: 2M
  streams:
    - name: trades
      interval: 100ms
    - name: depth
      interval: 1s
`

func TestLoaderLoadFromReader(t *testing.T) {
	cfg := &clientConfig{keyPrefix: "exchange"}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromReader(
		bytes.NewBufferString(clientConfigYAML), DataTypeYAML, cfg))

	require.Equal(t, "SPOT", cfg.Venue)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	require.Equal(t, BytesCount(2*1024*1024), cfg.MaxBytes)
	require.Equal(t, []streamConfig{
		{Name: "trades", Interval: TimeDuration(100 * time.Millisecond)},
		{Name: "depth", Interval: TimeDuration(time.Second)},
	}, cfg.Streams)
}

func TestLoaderLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"exchange":{"venue":"futures","timeout":"5s"}}`), 0o600))

	cfg := &clientConfig{keyPrefix: "exchange"}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeJSON, cfg))
	require.Equal(t, "futures", cfg.Venue)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, BytesCount(1024*1024), cfg.MaxBytes)
	require.Empty(t, cfg.Streams)
}

func TestLoaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "value not from set", data: "exchange:\n  venue: margin\n", wantErr: "exchange.venue"},
		{name: "bad bytes count", data: "exchange:\n  venue: spot\n  maxBytes: lots\n", wantErr: "exchange.maxBytes"},
		{name: "zero bytes count", data: "exchange:\n  venue: spot\n  maxBytes: 0\n", wantErr: "exchange.maxBytes: must be positive"},
		{name: "bad duration", data: "exchange:\n  venue: spot\n  timeout: later\n", wantErr: "exchange.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &clientConfig{keyPrefix: "exchange"}
			err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(tt.data), DataTypeYAML, cfg)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoaderWithEnvVars(t *testing.T) {
	t.Setenv("EXCHKIT_EXCHANGE_VENUE", "futures")

	cfg := &clientConfig{keyPrefix: "exchange"}
	require.NoError(t, NewDefaultLoader("exchkit").Load(cfg))
	require.Equal(t, "futures", cfg.Venue)
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	dp := NewKeyPrefixedDataProvider(va, "ws")
	dp.Set("url", "wss://stream.example.com")
	dp.SetDefault("sendRate", 5.5)

	require.True(t, dp.IsSet("url"))
	require.True(t, va.IsSet("ws.url"))
	require.Equal(t, "wss://stream.example.com", va.Get("ws.url"))

	rate, err := dp.GetFloat64("sendRate")
	require.NoError(t, err)
	require.Equal(t, 5.5, rate)

	enabled, err := dp.GetBool("enabled")
	require.NoError(t, err)
	require.False(t, enabled)

	require.EqualError(t, dp.WrapKeyErr("url", errors.New("bad scheme")), "ws.url: bad scheme")
}
