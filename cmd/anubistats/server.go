package main

import (
	"log"

	"gopkg.in/urfave/cli.v1"

	"github.com/pandaman64/anubistats/server"
)

var serverCommand = cli.Command{
	Name:  "server",
	Usage: "Serve queries over HTTP",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "datadir, d", Usage: "directory holding the index"},
		cli.StringFlag{Name: "addr", Usage: "address on which to listen"},
	},
	Action: runServer,
}

func runServer(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet("datadir") {
		cfg.Index.Dir = ctx.String("datadir")
	}
	if ctx.IsSet("addr") {
		cfg.Server.Addr = ctx.String("addr")
	}

	store, err := openStore(cfg.Index.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Printf("opened index %v in %v (%v documents, %v words)",
		store.ID(), store.Path(), store.NumDocs(), store.NumWords())
	return server.ListenAndServe(cfg, store)
}
