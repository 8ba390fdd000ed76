/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package wsclient

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-exchkit/config"
	"github.com/acronis/go-exchkit/retry"
)

const cfgDefaultKeyPrefix = "websocket"

const (
	cfgKeyURL                 = "url"
	cfgKeyPingInterval        = "pingInterval"
	cfgKeyPongWait            = "pongWait"
	cfgKeyWriteTimeout        = "writeTimeout"
	cfgKeySendRate            = "sendRate"
	cfgKeySendBurst           = "sendBurst"
	cfgKeyDialMaxAttempts     = "dial.maxAttempts"
	cfgKeyDialInitialInterval = "dial.initialInterval"
	cfgKeyDialMaxInterval     = "dial.maxInterval"
)

// Default values.
const (
	DefaultPingInterval        = 20 * time.Second
	DefaultPongWait            = time.Minute
	DefaultWriteTimeout        = 10 * time.Second
	DefaultSendRate            = 5
	DefaultSendBurst           = 5
	DefaultDialMaxAttempts     = 5
	DefaultDialInitialInterval = 500 * time.Millisecond
	DefaultDialMaxInterval     = 30 * time.Second
)

// Config represents a configuration of a websocket connection to an exchange stream.
type Config struct {
	URL string `mapstructure:"url" yaml:"url" json:"url"`

	// PingInterval is an interval between pings. Pings are disabled if 0.
	PingInterval time.Duration `mapstructure:"pingInterval" yaml:"pingInterval" json:"pingInterval"`

	// PongWait is the maximum time without any inbound frame (pong included) before the connection is considered dead.
	// Read deadline is not set if 0.
	PongWait time.Duration `mapstructure:"pongWait" yaml:"pongWait" json:"pongWait"`

	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout" json:"writeTimeout"`

	// SendRate is the maximum number of outbound messages per second. Unlimited if 0.
	SendRate  float64 `mapstructure:"sendRate" yaml:"sendRate" json:"sendRate"`
	SendBurst int     `mapstructure:"sendBurst" yaml:"sendBurst" json:"sendBurst"`

	Dial DialConfig `mapstructure:"dial" yaml:"dial" json:"dial"`

	keyPrefix string
}

// DialConfig represents a configuration of dialing with retries.
type DialConfig struct {
	// MaxAttempts is the maximum number of dial attempts. Unlimited if 0.
	MaxAttempts     int           `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval time.Duration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`
	MaxInterval     time.Duration `mapstructure:"maxInterval" yaml:"maxInterval" json:"maxInterval"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(url string, options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.URL = url
	cfg.PingInterval = DefaultPingInterval
	cfg.PongWait = DefaultPongWait
	cfg.WriteTimeout = DefaultWriteTimeout
	cfg.SendRate = DefaultSendRate
	cfg.SendBurst = DefaultSendBurst
	cfg.Dial = DialConfig{
		MaxAttempts:     DefaultDialMaxAttempts,
		InitialInterval: DefaultDialInitialInterval,
		MaxInterval:     DefaultDialMaxInterval,
	}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyPingInterval, DefaultPingInterval)
	dp.SetDefault(cfgKeyPongWait, DefaultPongWait)
	dp.SetDefault(cfgKeyWriteTimeout, DefaultWriteTimeout)
	dp.SetDefault(cfgKeySendRate, DefaultSendRate)
	dp.SetDefault(cfgKeySendBurst, DefaultSendBurst)
	dp.SetDefault(cfgKeyDialMaxAttempts, DefaultDialMaxAttempts)
	dp.SetDefault(cfgKeyDialInitialInterval, DefaultDialInitialInterval)
	dp.SetDefault(cfgKeyDialMaxInterval, DefaultDialMaxInterval)
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.URL, err = dp.GetString(cfgKeyURL); err != nil {
		return err
	}
	if c.URL == "" {
		return dp.WrapKeyErr(cfgKeyURL, fmt.Errorf("cannot be empty"))
	}

	for key, dst := range map[string]*time.Duration{
		cfgKeyPingInterval:        &c.PingInterval,
		cfgKeyPongWait:            &c.PongWait,
		cfgKeyWriteTimeout:        &c.WriteTimeout,
		cfgKeyDialInitialInterval: &c.Dial.InitialInterval,
		cfgKeyDialMaxInterval:     &c.Dial.MaxInterval,
	} {
		if *dst, err = dp.GetDuration(key); err != nil {
			return err
		}
		if *dst < 0 {
			return dp.WrapKeyErr(key, fmt.Errorf("cannot be negative"))
		}
	}

	if c.SendRate, err = dp.GetFloat64(cfgKeySendRate); err != nil {
		return err
	}
	if c.SendRate < 0 {
		return dp.WrapKeyErr(cfgKeySendRate, fmt.Errorf("cannot be negative"))
	}
	if c.SendBurst, err = dp.GetInt(cfgKeySendBurst); err != nil {
		return err
	}
	if c.SendRate > 0 && c.SendBurst < 1 {
		return dp.WrapKeyErr(cfgKeySendBurst, fmt.Errorf("should be >= 1 when send rate is limited"))
	}

	if c.Dial.MaxAttempts, err = dp.GetInt(cfgKeyDialMaxAttempts); err != nil {
		return err
	}
	if c.Dial.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyDialMaxAttempts, fmt.Errorf("cannot be negative"))
	}
	return nil
}

func (c DialConfig) retryPolicy() retry.Policy {
	if c.MaxAttempts == 1 {
		return retry.PolicyFunc(func() backoff.BackOff { return &backoff.StopBackOff{} })
	}
	return retry.ExponentialBackoffPolicy{
		InitialInterval: c.InitialInterval,
		MaxInterval:     c.MaxInterval,
		MaxRetries:      c.MaxAttempts - 1,
	}
}
