/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/acronis/go-appkit/log"
)

const demoCapacity = 3

var demoCommand = &cli.Command{
	Name:  "demo",
	Usage: "put A, B, C and D into a store of capacity 3, save it and show which keys survived",
	Action: func(c *cli.Context) error {
		a, closeLogger, err := setupApp(c, demoCapacity)
		if err != nil {
			return err
		}
		defer closeLogger()

		for _, key := range []string{"A", "B", "C", "D"} {
			if a.store.Put(key, "value_"+strings.ToLower(key)) {
				a.logger.Info("entry evicted", log.String("inserted", key))
			}
		}
		if err = a.store.Save(); err != nil {
			return err
		}

		out := c.App.Writer
		_, _ = fmt.Fprintln(out, "Cache after save")
		for _, key := range []string{"A", "B", "C", "D"} {
			printGet(out, a, key)
		}
		return nil
	},
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "print values of the given keys, found keys become the most recently used ones",
	ArgsUsage: "<key> [<key>...]",
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("at least one key is required")
		}
		a, closeLogger, err := setupApp(c, 0)
		if err != nil {
			return err
		}
		defer closeLogger()

		for _, key := range c.Args().Slice() {
			printGet(c.App.Writer, a, key)
		}
		// Hits change the recency order, so the snapshot is rewritten even without new values.
		return a.store.Save()
	},
}

var putCommand = &cli.Command{
	Name:      "put",
	Usage:     "store the value under the key, evicting the least recently used entry if the store is full",
	ArgsUsage: "<key> <value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return fmt.Errorf("key and value are required")
		}
		a, closeLogger, err := setupApp(c, 0)
		if err != nil {
			return err
		}
		defer closeLogger()

		key, value := c.Args().Get(0), c.Args().Get(1)
		if a.store.Put(key, value) {
			a.logger.Info("entry evicted", log.String("inserted", key))
		}
		return a.store.Save()
	},
}

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "print all entries from the least to the most recently used one without changing the order",
	Action: func(c *cli.Context) error {
		a, closeLogger, err := setupApp(c, 0)
		if err != nil {
			return err
		}
		defer closeLogger()

		printDump(c.App.Writer, a)
		return nil
	},
}

func printGet(out io.Writer, a *app, key string) (found bool) {
	if value, ok := a.store.Get(key); ok {
		_, _ = fmt.Fprintf(out, "%s: %s\n", key, value)
		return true
	}
	_, _ = fmt.Fprintf(out, "%s: not found\n", key)
	return false
}

func printDump(out io.Writer, a *app) {
	a.store.Range(func(key, value string) bool {
		_, _ = fmt.Fprintf(out, "%q: %q\n", key, value)
		return true
	})
	_, _ = fmt.Fprintf(out, "(%d of %d)\n", a.store.Len(), a.store.Cap())
}
