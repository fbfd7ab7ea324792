package main

import (
	"log"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/pandaman64/anubistats/dataset"
	"github.com/pandaman64/anubistats/index"
)

var buildCommand = cli.Command{
	Name:  "build",
	Usage: "Build the index from the stories CSV export",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "input, i", Usage: "path to the stories CSV file"},
		cli.StringFlag{Name: "datadir, d", Usage: "directory in which the index is built"},
	},
	Action: runBuild,
}

func runBuild(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	input := cfg.Dataset.Path
	if ctx.IsSet("input") {
		input = ctx.String("input")
	}
	path := cfg.Index.Dir
	if ctx.IsSet("datadir") {
		path = ctx.String("datadir")
	}

	reader, err := dataset.Open(input)
	if err != nil {
		return errors.Wrap(err, "failed to open the dataset")
	}
	defer reader.Close()

	dir, err := index.OpenDir(path, true)
	if err != nil {
		return errors.Wrap(err, "failed to open the index directory")
	}

	log.Printf("building index in %v from %v", path, input)
	started := time.Now()
	numDocs, err := index.BuildFrom(dir, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build the index")
	}
	log.Printf("indexed %v documents in %s", numDocs, time.Since(started))
	return nil
}
