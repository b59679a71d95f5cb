/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"

	"github.com/acronis/go-appkit/log"
)

// Default values for AutoSaverOpts.
const (
	DefaultAutoSaveMaxRetries    = 3
	DefaultAutoSaveRetryInterval = time.Second
)

// Saver is a cache that can save its unsaved changes. PersistentCache implements it.
type Saver interface {
	SaveIfDirty() (saved bool, err error)
}

// AutoSaverOpts represents options for AutoSaver.
type AutoSaverOpts struct {
	// MaxRetries is the number of retries of a failed save within one tick.
	// Zero means DefaultAutoSaveMaxRetries, negative value disables retries.
	MaxRetries int

	// RetryInterval is the initial delay between retries, it grows exponentially.
	// Zero means DefaultAutoSaveRetryInterval.
	RetryInterval time.Duration

	// Logger is used for reporting save failures. It can be nil.
	Logger log.FieldLogger
}

// AutoSaver periodically saves a cache that has unsaved changes.
// The retry policy belongs to AutoSaver: Save and PersistentCache never retry on their own.
type AutoSaver struct {
	saver         Saver
	interval      time.Duration
	maxRetries    int
	retryInterval time.Duration
	logger        log.FieldLogger

	saves    atomic.Int64
	failures atomic.Int64
}

// NewAutoSaver creates a new AutoSaver that checks the saver every interval.
func NewAutoSaver(saver Saver, interval time.Duration, opts AutoSaverOpts) (*AutoSaver, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("auto-save interval must be greater than 0")
	}
	a := &AutoSaver{
		saver:         saver,
		interval:      interval,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
	if a.maxRetries == 0 {
		a.maxRetries = DefaultAutoSaveMaxRetries
	}
	if a.retryInterval == 0 {
		a.retryInterval = DefaultAutoSaveRetryInterval
	}
	if a.logger == nil {
		a.logger = log.NewDisabledLogger()
	}
	return a, nil
}

// Saves returns the number of snapshots written by the AutoSaver.
func (a *AutoSaver) Saves() int64 {
	return a.saves.Load()
}

// Failures returns the number of ticks on which saving failed even after all retries.
func (a *AutoSaver) Failures() int64 {
	return a.failures.Load()
}

// Run runs the auto-save loop until ctx is done.
// A failed save is logged and retried on the next tick.
// When ctx is done, unsaved changes are saved one last time and the result of this final save is returned.
func (a *AutoSaver) Run(ctx context.Context) (resErr error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			a.logger.Error(fmt.Sprintf("panic: %+v", p), log.String("stack", string(stack)))
			panic(p)
		}
		if resErr != nil {
			a.logger.Error("auto-saver stopped with error", log.Error(resErr))
			return
		}
		a.logger.Info("auto-saver stopped successfully")
	}()

	a.logger.Infof("running auto-saver (interval=%s, maxRetries=%d)...", a.interval, a.maxRetries)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.saveWithRetry(context.Background())
		case <-ticker.C:
			_ = a.saveWithRetry(ctx)
		}
	}
}

func (a *AutoSaver) saveWithRetry(ctx context.Context) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = a.retryInterval
	eb.Reset()
	var b backoff.BackOff
	if a.maxRetries > 0 {
		b = backoff.WithMaxRetries(eb, uint64(a.maxRetries))
	} else {
		b = &backoff.StopBackOff{}
	}
	b = backoff.WithContext(b, ctx)

	op := func() error {
		saved, err := a.saver.SaveIfDirty()
		if saved {
			a.saves.Inc()
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		a.logger.Warn("snapshot auto-save failed, retrying", log.Error(err), log.Duration("delay", delay))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		a.failures.Inc()
		a.logger.Error("snapshot auto-save failed", log.Error(err))
		return err
	}
	return nil
}
