/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyCapacity         = "capacity"
	cfgKeyMetricsNamespace = "metricsNamespace"
)

// DefaultCapacity is the capacity used when the configuration does not specify one.
const DefaultCapacity = 1000

// Config represents a set of configuration parameters for the cache.
type Config struct {
	Capacity         int    `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	MetricsNamespace string `mapstructure:"metricsNamespace" yaml:"metricsNamespace" json:"metricsNamespace"`

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

// SetProviderDefaults sets default configuration values for cache in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCapacity, DefaultCapacity)
}

// Set sets cache configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Capacity, err = dp.GetInt(cfgKeyCapacity); err != nil {
		return err
	}
	if c.Capacity <= 0 {
		return dp.WrapKeyErr(cfgKeyCapacity, fmt.Errorf("should be > 0, got %d", c.Capacity))
	}
	if c.MetricsNamespace, err = dp.GetString(cfgKeyMetricsNamespace); err != nil {
		return err
	}
	return nil
}
