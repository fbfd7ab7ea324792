package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/pandaman64/anubistats/index"
	"github.com/pandaman64/anubistats/query"
)

var searchCommand = cli.Command{
	Name:      "search",
	Usage:     "Run one query against the index",
	ArgsUsage: "QUERY",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "datadir, d", Usage: "directory holding the index"},
		cli.IntFlag{Name: "limit, n", Value: 10, Usage: "number of matching documents to print"},
		cli.BoolFlag{Name: "stats", Usage: "print per-date score totals instead of documents"},
	},
	Action: runSearch,
}

func runSearch(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one query argument")
	}
	q, err := query.Parse(ctx.Args().First())
	if err != nil {
		return err
	}

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

	started := time.Now()
	matches, err := store.Eval(q)
	if err != nil {
		return errors.Wrap(err, "query failed")
	}
	log.Printf("evaluated the query in %s", time.Since(started))

	fmt.Printf("%d documents match the query '%s'\n", matches.GetCardinality(), q)
	if ctx.Bool("stats") {
		return printStats(os.Stdout, store, matches)
	}
	return printDocuments(os.Stdout, store, matches, ctx.Int("limit"))
}

// printDocuments fetches and prints the first limit matches.
func printDocuments(w io.Writer, store *index.Store, matches *roaring.Bitmap, limit int) error {
	shown := roaring.New()
	it := matches.Iterator()
	for n := 0; n < limit && it.HasNext(); n++ {
		shown.Add(it.Next())
	}
	docs, err := store.Fetch(shown)
	if err != nil {
		return errors.Wrap(err, "failed to fetch the matching documents")
	}
	for i := range docs {
		fmt.Fprintf(w, "[%d] %d: %s\n", docs[i].ID, docs[i].DocID, docs[i].Title)
	}
	return nil
}

// printStats prints the total score and document count per date.
func printStats(w io.Writer, store *index.Store, matches *roaring.Bitmap) error {
	groups, err := store.GroupBy(matches, index.ColumnDate, index.ColumnScore)
	if err != nil {
		return errors.Wrap(err, "aggregation failed")
	}
	for _, g := range groups {
		date := g.Value
		if g.Null {
			date = "(no date)"
		}
		fmt.Fprintf(w, "%s: score=%d documents=%d\n", date, g.Sum, g.Count)
	}
	return nil
}
