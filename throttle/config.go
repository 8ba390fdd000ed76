/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-exchkit/config"
	"github.com/acronis/go-exchkit/ratelimit"
)

const cfgDefaultKeyPrefix = "throttle"

const (
	cfgKeyMode     = "mode"
	cfgKeyMaxDelay = "maxDelay"
	cfgKeyRules    = "rules"
)

var availableModes = []string{string(ModeIgnore), string(ModeReject), string(ModeDelayAndRetry)}

// Config represents a configuration for throttling of outbound calls.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Mode     Mode          `mapstructure:"mode" yaml:"mode" json:"mode"`
	MaxDelay MaxDelayValue `mapstructure:"maxDelay" yaml:"maxDelay" json:"maxDelay"`

	// Rules contains rate limit rules. Calls reference them by id.
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
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

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for throttling in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMode, string(ModeDelayAndRetry))
	dp.SetDefault(cfgKeyMaxDelay, maxDelayUnbounded)
}

// Set sets throttling configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	modeStr, err := dp.GetStringFromSet(cfgKeyMode, availableModes, true)
	if err != nil {
		return err
	}
	c.Mode = Mode(strings.ToLower(modeStr))

	maxDelayStr, err := dp.GetString(cfgKeyMaxDelay)
	if err != nil {
		return err
	}
	if err = c.MaxDelay.unmarshal(maxDelayStr); err != nil {
		return dp.WrapKeyErr(cfgKeyMaxDelay, err)
	}

	if err = dp.UnmarshalKey(cfgKeyRules, &c.Rules, func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.DecodeHook = MapstructureDecodeHook()
	}); err != nil {
		return err
	}

	return c.Validate()
}

// Validate validates configuration.
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Rules))
	for i := range c.Rules {
		rule := c.Rules[i].Rule()
		if err := rule.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("validate rule #%d (%q): %w", i, rule.ID, err)
		}
		if _, ok := seen[rule.ID]; ok {
			return fmt.Errorf("duplicate rule %q", rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}

// Policy returns throttling policy described by the configuration.
func (c *Config) Policy() Policy {
	mode := c.Mode
	if mode == "" {
		mode = ModeDelayAndRetry
	}
	return Policy{Mode: mode, MaxDelay: c.MaxDelay.toDuration()}
}

// RateLimitRules returns rate limit rules described by the configuration.
func (c *Config) RateLimitRules() []ratelimit.Rule {
	rules := make([]ratelimit.Rule, 0, len(c.Rules))
	for i := range c.Rules {
		rules = append(rules, c.Rules[i].Rule())
	}
	return rules
}

// NewCoordinator creates a new Coordinator using rules and policy from the configuration.
// Policy passed in opts is ignored.
func (c *Config) NewCoordinator(opts CoordinatorOpts) (*Coordinator, error) {
	policy := c.Policy()
	opts.Policy = &policy
	return NewCoordinator(c.RateLimitRules(), opts)
}

// RuleConfig represents a configuration of a single rate limit rule.
type RuleConfig struct {
	ID          string              `mapstructure:"id" yaml:"id" json:"id"`
	Window      config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`
	MaxCount    int                 `mapstructure:"maxCount" yaml:"maxCount" json:"maxCount"`
	MaxWeight   int                 `mapstructure:"maxWeight" yaml:"maxWeight" json:"maxWeight"`
	Granularity config.TimeDuration `mapstructure:"granularity" yaml:"granularity" json:"granularity"`
}

// Rule converts configuration to ratelimit.Rule.
func (rc RuleConfig) Rule() ratelimit.Rule {
	return ratelimit.Rule{
		ID:          rc.ID,
		Window:      time.Duration(rc.Window),
		MaxCount:    rc.MaxCount,
		MaxWeight:   rc.MaxWeight,
		Granularity: time.Duration(rc.Granularity),
	}
}

const maxDelayUnbounded = "unbounded"

// MaxDelayValue represents the maximum delay of a call.
// It's either a duration (e.g. "5s") or "unbounded".
type MaxDelayValue struct {
	IsUnbounded bool
	Duration    time.Duration
}

// String returns a string representation of the max delay value.
// Implements fmt.Stringer interface.
func (md MaxDelayValue) String() string {
	if md.IsUnbounded {
		return maxDelayUnbounded
	}
	return md.Duration.String()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (md *MaxDelayValue) UnmarshalText(text []byte) error {
	return md.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (md *MaxDelayValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return md.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (md *MaxDelayValue) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return md.unmarshal(text)
}

func (md *MaxDelayValue) unmarshal(val string) error {
	switch val = strings.TrimSpace(val); strings.ToLower(val) {
	case "", maxDelayUnbounded:
		*md = MaxDelayValue{IsUnbounded: true}
		return nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return err
	}
	if dur < 0 {
		*md = MaxDelayValue{IsUnbounded: true}
		return nil
	}
	*md = MaxDelayValue{Duration: dur}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (md MaxDelayValue) MarshalText() ([]byte, error) {
	return []byte(md.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (md MaxDelayValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(md.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (md MaxDelayValue) MarshalYAML() (interface{}, error) {
	return md.String(), nil
}

func (md MaxDelayValue) toDuration() time.Duration {
	if md.IsUnbounded {
		return UnboundedMaxDelay
	}
	return md.Duration
}

// MapstructureDecodeHook returns a DecodeHookFunc for mapstructure to handle custom types.
func MapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}
