/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acronis/go-appkit/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestSaveUnit_Start_Stop(t *testing.T) {
	t.Run("stop gracefully returns the result of the worker", func(t *testing.T) {
		errFinal := errors.New("final save failed")
		var finished atomic.Bool
		unit := newSaveUnit(service.WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return errFinal
		}), 0)
		fatalErr := make(chan error, 1)
		go unit.Start(fatalErr)
		time.Sleep(20 * time.Millisecond)

		require.ErrorIs(t, unit.Stop(true), errFinal)
		require.True(t, finished.Load())
		require.Empty(t, fatalErr, "error after stop is not fatal")
	})

	t.Run("repeated stop returns the same result without blocking", func(t *testing.T) {
		errFinal := errors.New("final save failed")
		unit := newSaveUnit(service.WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return errFinal
		}), 0)
		go unit.Start(make(chan error, 1))

		require.ErrorIs(t, unit.Stop(true), errFinal)

		stopped := make(chan error, 1)
		go func() { stopped <- unit.Stop(true) }()
		select {
		case err := <-stopped:
			require.ErrorIs(t, err, errFinal)
		case <-time.After(time.Second):
			t.Fatal("second graceful stop is blocked")
		}
		require.NoError(t, unit.Stop(false))
	})

	t.Run("stop not gracefully doesn't wait", func(t *testing.T) {
		release := make(chan struct{})
		unit := newSaveUnit(service.WorkerFunc(func(ctx context.Context) error {
			<-release
			return nil
		}), 0)
		go unit.Start(make(chan error, 1))
		require.NoError(t, unit.Stop(false))
		close(release)
	})

	t.Run("stop gracefully with timeout", func(t *testing.T) {
		unit := newSaveUnit(service.WorkerFunc(func(ctx context.Context) error {
			time.Sleep(3 * time.Second) // Emulate long blocking operation.
			return nil
		}), 100*time.Millisecond)
		go unit.Start(make(chan error, 1))
		time.Sleep(20 * time.Millisecond)
		require.ErrorIs(t, unit.Stop(true), errSaveUnitStopTimeoutExceeded)
	})

	t.Run("error before stop is fatal", func(t *testing.T) {
		errRun := errors.New("run failed")
		unit := newSaveUnit(service.WorkerFunc(func(ctx context.Context) error {
			return errRun
		}), 0)
		fatalErr := make(chan error, 1)
		unit.Start(fatalErr)
		require.ErrorIs(t, <-fatalErr, errRun)
	})
}
