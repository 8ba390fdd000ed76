/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-exchkit/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
		wantErr     string
	}{
		{
			name:        "defaults",
			cfgData:     `log: {}`,
			expectedCfg: func() *Config { return NewDefaultConfig() },
		},
		{
			name: "file output",
			cfgData: `
log:
  level: DEBUG
  format: text
  output: file
  addCaller: true
  file:
    path: exchange-client.log
    rotation:
      compress: true
      maxSize: 10M
      maxBackups: 3
      maxAgeDays: 7
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelDebug
				cfg.Format = FormatText
				cfg.Output = OutputFile
				cfg.AddCaller = true
				cfg.File.Path = "exchange-client.log"
				cfg.File.Rotation.Compress = true
				cfg.File.Rotation.MaxSize = 10 * 1024 * 1024
				cfg.File.Rotation.MaxBackups = 3
				cfg.File.Rotation.MaxAgeDays = 7
				return cfg
			},
		},
		{
			name: "masking",
			cfgData: `
log:
  masking:
    enabled: true
    useDefaultRules: false
    rules:
      - field: token
        formats: [urlencoded, json]
      - field: session
        masks:
          - regexp: "session-[0-9a-f]+"
            mask: "session-***"
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Masking = MaskingConfig{
					Enabled: true,
					Rules: []MaskingRuleConfig{
						{Field: "token", Formats: []FieldMaskFormat{FieldMaskFormatURLEncoded, FieldMaskFormatJSON}},
						{Field: "session", Masks: []MaskConfig{{RegExp: "session-[0-9a-f]+", Mask: "session-***"}}},
					},
				}
				return cfg
			},
		},
		{
			name:    "masking rule with unknown format",
			cfgData: "log:\n  masking:\n    rules:\n      - field: token\n        formats: [xml]\n",
			wantErr: "log.masking.rules",
		},
		{
			name:    "masking rule without field",
			cfgData: "log:\n  masking:\n    rules:\n      - formats: [json]\n",
			wantErr: "field cannot be empty",
		},
		{
			name:    "unknown level",
			cfgData: "log:\n  level: trace\n",
			wantErr: "log.level",
		},
		{
			name:    "file output without path",
			cfgData: "log:\n  output: file\n",
			wantErr: "log.file.path",
		},
		{
			name:    "too small rotation size",
			cfgData: "log:\n  file:\n    rotation:\n      maxSize: 1K\n",
			wantErr: "log.file.rotation.maxSize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigKeyPrefix(t *testing.T) {
	require.Equal(t, "log", NewConfig().KeyPrefix())
	require.Equal(t, "client.log", NewConfig(WithKeyPrefix("client.log")).KeyPrefix())
	require.Equal(t, "log", (&Config{}).KeyPrefix())
}

func TestConfigMasker(t *testing.T) {
	cfg := NewDefaultConfig()
	require.Nil(t, cfg.masker())

	cfg.Masking.Enabled = true
	cfg.Masking.Rules = []MaskingRuleConfig{{Field: "token", Formats: []FieldMaskFormat{FieldMaskFormatURLEncoded}}}
	masker := cfg.masker()
	require.NotNil(t, masker)
	require.Equal(t, "token=***&signature=***", masker.Mask("token=abc&signature=def"))
	require.Len(t, cfg.Masking.Rules, 1)

	cfg.Masking.UseDefaultRules = false
	require.Equal(t, "token=***&signature=def", cfg.masker().Mask("token=abc&signature=def"))
}
