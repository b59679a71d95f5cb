/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"time"

	"github.com/acronis/go-appkit/service"
	"go.uber.org/atomic"
)

// errSaveUnitStopTimeoutExceeded is an error that occurs when saveUnit's graceful stop timeout is exceeded.
var errSaveUnitStopTimeoutExceeded = errors.New("save unit stop timeout exceeded")

// saveUnit presents the worker that keeps the snapshot up to date as service.Unit.
// Unlike service.WorkerUnit, Stop returns the error of the final save, so it isn't lost on shutdown.
type saveUnit struct {
	worker      service.Worker
	stopTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	stopped     atomic.Bool
	done        chan struct{}
	err         error
}

var _ service.Unit = (*saveUnit)(nil)

func newSaveUnit(worker service.Worker, stopTimeout time.Duration) *saveUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &saveUnit{worker: worker, stopTimeout: stopTimeout, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Start calls Run method of the worker and blocks until it returns.
// An error returned before Stop is called is considered fatal.
func (u *saveUnit) Start(fatalError chan<- error) {
	u.err = u.worker.Run(u.ctx)
	if u.err != nil && !u.stopped.Load() {
		fatalError <- u.err
	}
	close(u.done)
}

// Stop cancels the context of the worker.
// If gracefully is true, it waits for Run to return and returns its error.
// Stop may be called more than once, every graceful call returns the same result.
func (u *saveUnit) Stop(gracefully bool) error {
	u.stopped.Store(true)
	u.cancel()
	if !gracefully {
		return nil
	}
	var timeout <-chan time.Time
	if u.stopTimeout > 0 {
		timer := time.NewTimer(u.stopTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-u.done:
		return u.err
	case <-timeout:
		return errSaveUnitStopTimeoutExceeded
	}
}
