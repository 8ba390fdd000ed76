/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBytesCount(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    BytesCount
		wantErr bool
	}{
		{name: "integer", text: "2048", want: 2048},
		{name: "human-readable", text: "10M", want: 10 * 1024 * 1024},
		{name: "k8s suffix", text: "512Ki", want: 512 * 1024},
		{name: "negative", text: "-1", wantErr: true},
		{name: "garbage", text: "ten megabytes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b BytesCount
			err := b.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, b)
		})
	}

	var cfg struct {
		Size BytesCount `json:"size" yaml:"size"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"size":"1K"}`), &cfg))
	require.Equal(t, BytesCount(1024), cfg.Size)
	require.NoError(t, yaml.Unmarshal([]byte("size: 4096"), &cfg))
	require.Equal(t, BytesCount(4096), cfg.Size)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.JSONEq(t, `{"size":"4K"}`, string(data))
}

func TestTimeDuration(t *testing.T) {
	var d TimeDuration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	require.Equal(t, TimeDuration(1500*time.Millisecond), d)

	require.NoError(t, d.UnmarshalText([]byte("1000")))
	require.Equal(t, TimeDuration(1000), d)

	require.Error(t, d.UnmarshalText([]byte("-5")))
	require.Error(t, d.UnmarshalText([]byte("soon")))

	var cfg struct {
		Window TimeDuration `json:"window" yaml:"window"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("window: 1m"), &cfg))
	require.Equal(t, TimeDuration(time.Minute), cfg.Window)
	require.NoError(t, json.Unmarshal([]byte(`{"window":"10s"}`), &cfg))
	require.Equal(t, TimeDuration(10*time.Second), cfg.Window)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.Equal(t, "window: 10s\n", string(out))
}
