// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package main

import (
	"log"
	"os"
	"runtime/pprof"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/pandaman64/anubistats/config"
	"github.com/pandaman64/anubistats/index"
)

func main() {
	app := cli.NewApp()

	app.Name = "anubistats"
	app.HelpName = os.Args[0]
	app.Usage = "Hacker News stories search and analytics"
	app.HideVersion = true

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to the configuration file"},
		cli.StringFlag{Name: "cpuprofile", Usage: "write cpu profile to file", Hidden: true},
	}

	app.Commands = []cli.Command{
		buildCommand,
		searchCommand,
		replCommand,
		serverCommand,
	}

	app.Before = func(ctx *cli.Context) error {
		if ctx.GlobalIsSet("cpuprofile") {
			file, err := os.Create(ctx.GlobalString("cpuprofile"))
			if err != nil {
				return errors.Wrap(err, "unable to create file for cpu profile")
			}
			pprof.StartCPUProfile(file)
		}
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
		return nil
	}

	app.After = func(ctx *cli.Context) error {
		if ctx.GlobalIsSet("cpuprofile") {
			pprof.StopCPUProfile()
		}
		return nil
	}

	app.RunAndExitOnError()
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	return config.Load(ctx.GlobalString("config"))
}

func openStore(path string) (*index.Store, error) {
	dir, err := index.OpenDir(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the index directory")
	}
	return index.Open(dir)
}
