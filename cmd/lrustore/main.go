/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	golog "log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		golog.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lrustore",
		Usage: "bounded LRU key-value store persisted to a flat text snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
			},
			&cli.IntFlag{
				Name:  flagCapacity,
				Usage: "maximum number of entries, overrides cache.capacity",
			},
			&cli.StringFlag{
				Name:  flagSnapshot,
				Usage: "path to the snapshot file, overrides snapshot.path",
			},
		},
		Commands: []*cli.Command{
			demoCommand,
			getCommand,
			putCommand,
			dumpCommand,
			shellCommand,
		},
	}
}
