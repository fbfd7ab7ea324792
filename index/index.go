// Package index provides a persistent inverted index over document titles.
//
// The index maps each lower-cased title word to a compressed bitmap of
// surrogate document ids, which are dense 32-bit integers assigned in
// build order. Posting lists live concatenated in a postings file, a
// block structured dictionary locates one word's list without scanning
// the others, and a paged stored fields file carries the displayable
// document attributes. The manifest ties the three files together and
// is the only entry point readers ever look at.
package index

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pandaman64/anubistats/dataset"
)

// RecordReader is a sequential source of dataset records, returning
// io.EOF after the last one. *dataset.Reader implements it.
type RecordReader interface {
	Next() (*dataset.Record, error)
}

// BuildFrom indexes every record from r and commits the result to dir,
// replacing any index the directory held before. It returns the number
// of documents indexed.
func BuildFrom(dir Dir, r RecordReader) (int, error) {
	builder := NewBuilder(dir)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.WithMessage(err, "failed to read a record")
		}
		if err := builder.Add(rec); err != nil {
			return 0, err
		}
	}
	if err := builder.Commit(); err != nil {
		return 0, err
	}
	return builder.NumDocs(), nil
}
