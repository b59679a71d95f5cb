/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "snapshot"

const (
	cfgKeyPath                  = "path"
	cfgKeyMaxRecordSize         = "maxRecordSize"
	cfgKeyAutoSaveEnabled       = "autosave.enabled"
	cfgKeyAutoSaveInterval      = "autosave.interval"
	cfgKeyAutoSaveMaxRetries    = "autosave.maxRetries"
	cfgKeyAutoSaveRetryInterval = "autosave.retryInterval"
)

// Default values for Config.
const (
	DefaultPath             = "cache_data.txt"
	DefaultAutoSaveInterval = 30 * time.Second
)

// AutoSaveConfig is a configuration for AutoSaver.
type AutoSaveConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`
	MaxRetries    int           `mapstructure:"maxRetries" yaml:"maxRetries" json:"maxRetries"`
	RetryInterval time.Duration `mapstructure:"retryInterval" yaml:"retryInterval" json:"retryInterval"`
}

// Config represents a set of configuration parameters for the snapshot file.
type Config struct {
	Path          string          `mapstructure:"path" yaml:"path" json:"path"`
	MaxRecordSize config.ByteSize `mapstructure:"maxRecordSize" yaml:"maxRecordSize" json:"maxRecordSize"`
	AutoSave      AutoSaveConfig  `mapstructure:"autosave" yaml:"autosave" json:"autosave"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for snapshot in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyPath, DefaultPath)
	dp.SetDefault(cfgKeyMaxRecordSize, bytefmt.ByteSize(DefaultMaxRecordSize))
	dp.SetDefault(cfgKeyAutoSaveEnabled, false)
	dp.SetDefault(cfgKeyAutoSaveInterval, DefaultAutoSaveInterval.String())
	dp.SetDefault(cfgKeyAutoSaveMaxRetries, DefaultAutoSaveMaxRetries)
	dp.SetDefault(cfgKeyAutoSaveRetryInterval, DefaultAutoSaveRetryInterval.String())
}

// Set sets snapshot configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Path, err = dp.GetString(cfgKeyPath); err != nil {
		return err
	}
	if c.Path == "" {
		return dp.WrapKeyErr(cfgKeyPath, fmt.Errorf("cannot be empty"))
	}

	maxRecordSize, err := dp.GetSizeInBytes(cfgKeyMaxRecordSize)
	if err != nil {
		return err
	}
	if maxRecordSize == 0 {
		return dp.WrapKeyErr(cfgKeyMaxRecordSize, fmt.Errorf("should be > 0"))
	}
	c.MaxRecordSize = config.ByteSize(maxRecordSize)

	return c.setAutoSaveConfig(dp)
}

func (c *Config) setAutoSaveConfig(dp config.DataProvider) (err error) {
	if c.AutoSave.Enabled, err = dp.GetBool(cfgKeyAutoSaveEnabled); err != nil {
		return err
	}
	if c.AutoSave.Interval, err = dp.GetDuration(cfgKeyAutoSaveInterval); err != nil {
		return err
	}
	if c.AutoSave.Enabled && c.AutoSave.Interval <= 0 {
		return dp.WrapKeyErr(cfgKeyAutoSaveInterval, fmt.Errorf("should be > 0 when auto-save is enabled"))
	}
	if c.AutoSave.MaxRetries, err = dp.GetInt(cfgKeyAutoSaveMaxRetries); err != nil {
		return err
	}
	if c.AutoSave.MaxRetries < 0 {
		return dp.WrapKeyErr(cfgKeyAutoSaveMaxRetries, fmt.Errorf("should be >= 0, got %d", c.AutoSave.MaxRetries))
	}
	if c.AutoSave.RetryInterval, err = dp.GetDuration(cfgKeyAutoSaveRetryInterval); err != nil {
		return err
	}
	if c.AutoSave.RetryInterval < 0 {
		return dp.WrapKeyErr(cfgKeyAutoSaveRetryInterval, fmt.Errorf("cannot be negative"))
	}
	return nil
}

// AutoSaverOpts returns options for NewAutoSaver built from the configuration.
func (c *Config) AutoSaverOpts() AutoSaverOpts {
	maxRetries := c.AutoSave.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1 // Zero in the configuration means no retries.
	}
	return AutoSaverOpts{MaxRetries: maxRetries, RetryInterval: c.AutoSave.RetryInterval}
}
