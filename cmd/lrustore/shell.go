/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/service"
	"github.com/acronis/go-lrustore/snapshot"
)

const shellHelp = `commands:
  get <key>          print the value, a found key becomes the most recently used one (saved at once)
  put <key> <value>  store the value (the rest of the line)
  keys               print keys from the least to the most recently used one
  dump               print all entries
  save               write the snapshot now
  metrics            print cache and snapshot metrics
  help               print this help
  quit               save unsaved changes and exit`

var shellCommand = &cli.Command{
	Name:  "shell",
	Usage: "read commands from stdin, unsaved changes are saved periodically (if auto-save is enabled) and on exit",
	Action: func(c *cli.Context) error {
		a, closeLogger, err := setupApp(c, 0)
		if err != nil {
			return err
		}
		defer closeLogger()

		worker, err := makeSaveWorker(a)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()
		go func() {
			defer cancel()
			if consoleErr := runConsole(c.App.Reader, c.App.Writer, a); consoleErr != nil {
				a.logger.Error("failed to read commands", log.Error(consoleErr))
			}
		}()

		return service.New(a.logger, newSaveUnit(worker, 0)).StartContext(ctx)
	},
}

// makeSaveWorker returns a worker that keeps the snapshot up to date while the shell is running
// and saves unsaved changes when it's stopped.
func makeSaveWorker(a *app) (service.Worker, error) {
	autoSaveCfg := a.cfg.Snapshot.AutoSave
	if !autoSaveCfg.Enabled {
		return service.WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			_, err := a.store.SaveIfDirty()
			return err
		}), nil
	}
	opts := a.cfg.Snapshot.AutoSaverOpts()
	opts.Logger = a.logger
	return snapshot.NewAutoSaver(a.store, autoSaveCfg.Interval, opts)
}

func runConsole(r io.Reader, out io.Writer, a *app) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if quit := execShellLine(out, a, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

func execShellLine(out io.Writer, a *app, line string) (quit bool) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "":
	case "get":
		if rest == "" {
			_, _ = fmt.Fprintln(out, "usage: get <key>")
			return false
		}
		// A hit changes the recency order only, so it's saved here like the get command does.
		if printGet(out, a, rest) {
			if err := a.store.Save(); err != nil {
				_, _ = fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	case "put":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			_, _ = fmt.Fprintln(out, "usage: put <key> <value>")
			return false
		}
		if a.store.Put(key, value) {
			_, _ = fmt.Fprintln(out, "OK (evicted the least recently used entry)")
			return false
		}
		_, _ = fmt.Fprintln(out, "OK")
	case "keys":
		_, _ = fmt.Fprintln(out, strings.Join(a.store.Keys(), " "))
	case "dump":
		printDump(out, a)
	case "save":
		if err := a.store.Save(); err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		_, _ = fmt.Fprintln(out, "OK")
	case "metrics":
		if err := printMetrics(out, a); err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
	case "help":
		_, _ = fmt.Fprintln(out, shellHelp)
	case "quit", "exit":
		return true
	default:
		_, _ = fmt.Fprintf(out, "unknown command %q, type \"help\" for the list of commands\n", cmd)
	}
	return false
}

func printMetrics(out io.Writer, a *app) error {
	mfs, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err = expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
