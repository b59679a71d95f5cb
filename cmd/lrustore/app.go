/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-lrustore/lrucache"
	"github.com/acronis/go-lrustore/snapshot"
)

const envVarsPrefix = "LRUSTORE"

const (
	flagConfig   = "config"
	flagCapacity = "capacity"
	flagSnapshot = "snapshot"
)

// AppConfig represents the whole configuration of lrustore.
type AppConfig struct {
	Cache    *lrucache.Config
	Snapshot *snapshot.Config
	Log      *log.Config
}

// NewAppConfig creates a new instance of the AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Cache:    lrucache.NewConfig(),
		Snapshot: snapshot.NewConfig(),
		Log:      log.NewConfig(),
	}
}

// cliLogConfig sends logs to stderr by default, stdout is used for command results.
type cliLogConfig struct {
	*log.Config
}

func (c cliLogConfig) SetProviderDefaults(dp config.DataProvider) {
	c.Config.SetProviderDefaults(dp)
	dp.SetDefault("output", string(log.OutputStderr))
}

func loadAppConfig(c *cli.Context, defaultCapacity int) (*AppConfig, error) {
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)

	if c.IsSet(flagCapacity) {
		loader.DataProvider.Set("cache.capacity", c.Int(flagCapacity))
	} else if defaultCapacity > 0 {
		loader.DataProvider.Set("cache.capacity", defaultCapacity)
	}
	if c.IsSet(flagSnapshot) {
		loader.DataProvider.Set("snapshot.path", c.String(flagSnapshot))
	}

	var err error
	if cfgPath := c.String(flagConfig); cfgPath != "" {
		err = loader.LoadFromFile(cfgPath, config.DataTypeYAML, cfg.Cache, cfg.Snapshot, cliLogConfig{cfg.Log})
	} else {
		// Without a file only defaults, environment variables and flags are used.
		err = loader.LoadFromReader(strings.NewReader("{}"), config.DataTypeYAML, cfg.Cache, cfg.Snapshot, cliLogConfig{cfg.Log})
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// app holds everything a command needs: the configuration, the logger and the persistent store.
type app struct {
	cfg      *AppConfig
	logger   log.FieldLogger
	store    *snapshot.PersistentCache[string, string]
	registry *prometheus.Registry
}

// setupApp loads the configuration and opens the store.
// If defaultCapacity is positive, it's used instead of cache.capacity unless the --capacity flag is set.
func setupApp(c *cli.Context, defaultCapacity int) (*app, log.CloseFunc, error) {
	cfg, err := loadAppConfig(c, defaultCapacity)
	if err != nil {
		return nil, nil, err
	}

	logger, loggerClose := log.NewLogger(cfg.Log)

	registry := prometheus.NewRegistry()
	cacheMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: cfg.Cache.MetricsNamespace})
	cacheMetrics.MustRegisterIn(registry)
	snapshotMetrics := snapshot.NewPrometheusMetricsWithOpts(snapshot.PrometheusMetricsOpts{Namespace: cfg.Cache.MetricsNamespace})
	snapshotMetrics.MustRegisterIn(registry)

	store, _, err := snapshot.NewPersistent[string, string](
		cfg.Cache.Capacity, cfg.Snapshot.Path, snapshot.StringCodec, snapshot.StringCodec, snapshot.PersistentOpts{
			Fs:                    afero.NewOsFs(),
			Logger:                logger,
			CacheMetricsCollector: cacheMetrics,
			MetricsCollector:      snapshotMetrics,
			MaxRecordSize:         int(cfg.Snapshot.MaxRecordSize),
		})
	if err != nil {
		loggerClose()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: store, registry: registry}, loggerClose, nil
}
