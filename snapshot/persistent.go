/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/atomic"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-lrustore/lrucache"
)

// PersistentOpts represents options for NewPersistent.
type PersistentOpts struct {
	// Fs is a filesystem where the snapshot is stored. afero.NewOsFs() is used if it's nil.
	Fs afero.Fs

	// Logger is used for reporting load and save results. It can be nil.
	Logger log.FieldLogger

	// CacheMetricsCollector is passed to the underlying lrucache.LRUCache. It can be nil.
	CacheMetricsCollector lrucache.MetricsCollector

	// MetricsCollector collects snapshot metrics. It can be nil.
	MetricsCollector MetricsCollector

	// MaxRecordSize limits the length of a single snapshot line (see ImportOpts).
	MaxRecordSize int
}

// PersistentCache is an LRU cache bound to a snapshot file.
// Get, Peek, Keys, Range, Len and Cap are those of the underlying lrucache.LRUCache.
type PersistentCache[K comparable, V any] struct {
	*lrucache.LRUCache[K, V]

	fs            afero.Fs
	path          string
	keyCodec      Codec[K]
	valueCodec    Codec[V]
	logger        log.FieldLogger
	metrics       MetricsCollector
	maxRecordSize int

	saveMu sync.Mutex
	dirty  atomic.Bool
}

// NewPersistent creates a cache with the given capacity and fills it from the snapshot file at path.
// If the file doesn't exist, the cache starts empty and LoadResult.Found is false.
// Failures to read an existing snapshot are returned, so a broken or inaccessible file is never mistaken for an empty one.
func NewPersistent[K comparable, V any](
	capacity int, path string, keyCodec Codec[K], valueCodec Codec[V], opts PersistentOpts,
) (*PersistentCache[K, V], LoadResult, error) {
	cache, err := lrucache.New[K, V](capacity, opts.CacheMetricsCollector)
	if err != nil {
		return nil, LoadResult{}, err
	}

	pc := &PersistentCache[K, V]{
		LRUCache:      cache,
		fs:            opts.Fs,
		path:          path,
		keyCodec:      keyCodec,
		valueCodec:    valueCodec,
		logger:        opts.Logger,
		metrics:       opts.MetricsCollector,
		maxRecordSize: opts.MaxRecordSize,
	}
	if pc.fs == nil {
		pc.fs = afero.NewOsFs()
	}
	if pc.logger == nil {
		pc.logger = log.NewDisabledLogger()
	}
	if pc.metrics == nil {
		pc.metrics = disabledMetrics{}
	}

	res, err := pc.Load()
	if err != nil {
		return nil, res, err
	}
	return pc, res, nil
}

// Path returns the path of the bound snapshot file.
func (pc *PersistentCache[K, V]) Path() string {
	return pc.path
}

// Put stores a value in the cache (see lrucache.LRUCache.Put) and marks the cache as having unsaved changes.
func (pc *PersistentCache[K, V]) Put(key K, value V) (evicted bool) {
	evicted = pc.LRUCache.Put(key, value)
	pc.dirty.Store(true)
	return evicted
}

// Dirty reports whether the cache has been changed since the last successful save.
func (pc *PersistentCache[K, V]) Dirty() bool {
	return pc.dirty.Load()
}

// Load replays the bound snapshot file into the cache.
func (pc *PersistentCache[K, V]) Load() (LoadResult, error) {
	return pc.load(pc.path)
}

// LoadFrom replays the snapshot file at path into the cache.
// Loaded records are considered unsaved changes since they don't come from the bound snapshot file.
func (pc *PersistentCache[K, V]) LoadFrom(path string) (LoadResult, error) {
	res, err := pc.load(path)
	if res.Applied > 0 && path != pc.path {
		pc.dirty.Store(true)
	}
	return res, err
}

func (pc *PersistentCache[K, V]) load(path string) (LoadResult, error) {
	logger := pc.logger.With(log.String("path", path))
	res, err := Load[K, V](pc.fs, path, pc.LRUCache, pc.keyCodec, pc.valueCodec, ImportOpts{
		MaxRecordSize: pc.maxRecordSize,
		Logger:        logger,
	})
	if err != nil {
		return res, err
	}
	if !res.Found {
		logger.Info("snapshot not found, cache starts empty")
		return res, nil
	}
	pc.metrics.IncLoads(res.Applied, res.Skipped)
	logger.Info("snapshot loaded",
		log.Int("applied", res.Applied), log.Int("skipped", res.Skipped), log.Int("evicted", res.Evicted))
	return res, nil
}

// Save writes a full snapshot of the cache to the bound snapshot file.
func (pc *PersistentCache[K, V]) Save() error {
	pc.saveMu.Lock()
	defer pc.saveMu.Unlock()

	// Changes made while the snapshot is being written set the flag again.
	wasDirty := pc.dirty.Swap(false)
	if err := pc.saveTo(pc.path); err != nil {
		if wasDirty {
			pc.dirty.Store(true)
		}
		return err
	}
	return nil
}

// SaveTo writes a full snapshot of the cache to the file at path.
// It doesn't affect the unsaved changes flag unless path is the bound snapshot file.
func (pc *PersistentCache[K, V]) SaveTo(path string) error {
	if path == pc.path {
		return pc.Save()
	}
	pc.saveMu.Lock()
	defer pc.saveMu.Unlock()
	return pc.saveTo(path)
}

// SaveIfDirty saves the cache to the bound snapshot file only if it has unsaved changes.
func (pc *PersistentCache[K, V]) SaveIfDirty() (saved bool, err error) {
	if !pc.Dirty() {
		return false, nil
	}
	if err = pc.Save(); err != nil {
		return false, err
	}
	return true, nil
}

func (pc *PersistentCache[K, V]) saveTo(path string) error {
	written, err := Save[K, V](pc.fs, path, pc.LRUCache, pc.keyCodec, pc.valueCodec)
	if err != nil {
		pc.metrics.IncSaveErrors()
		return fmt.Errorf("save snapshot to %s: %w", path, err)
	}
	pc.metrics.IncSaves(written)
	pc.logger.Debug("snapshot saved", log.String("path", path), log.Int("records", written))
	return nil
}
