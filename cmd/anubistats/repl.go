package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/pandaman64/anubistats/index"
	"github.com/pandaman64/anubistats/query"
)

var replCommand = cli.Command{
	Name:  "repl",
	Usage: "Query the index interactively",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "datadir, d", Usage: "directory holding the index"},
		cli.IntFlag{Name: "limit, n", Value: 10, Usage: "number of matching documents to print per query"},
	},
	Action: runRepl,
}

func runRepl(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	path := cfg.Index.Dir
	if ctx.IsSet("datadir") {
		path = ctx.String("datadir")
	}
	store, err := openStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return repl(os.Stdin, os.Stdout, os.Stderr, store, ctx.Int("limit"))
}

// repl reads one query per line and prints the matches. A line starting
// with "stats " prints per-date score totals instead of the documents.
// Parse errors go to errOut and the loop continues, index errors end it.
func repl(r io.Reader, out, errOut io.Writer, store *index.Store, limit int) error {
	fmt.Fprintln(out, "Enter a query:")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		stats := false
		if strings.HasPrefix(line, "stats ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "stats "))
			stats = true
		}
		q, err := query.Parse(line)
		if err != nil {
			fmt.Fprintln(errOut, err)
			continue
		}

		started := time.Now()
		matches, err := store.Eval(q)
		if err != nil {
			return errors.Wrap(err, "query failed")
		}
		log.Printf("evaluated the query in %s", time.Since(started))

		fmt.Fprintf(out, "%d documents match the query '%s'\n", matches.GetCardinality(), q)
		if stats {
			err = printStats(out, store, matches)
		} else {
			err = printDocuments(out, store, matches, limit)
		}
		if err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "failed to read input")
}
