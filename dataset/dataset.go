// Package dataset reads the Hacker News stories dump that the index is
// built from. The dump is a CSV file with one story per line, columns
// are identified by the header line.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Record is one story from the dataset. Fields that can be empty in
// the dump are pointers, nil means the value is absent.
type Record struct {
	ID          uint64
	By          string
	Score       *uint64
	Time        *uint64
	TimeTS      string
	Title       string
	URL         string
	Text        string
	Deleted     *bool
	Dead        *bool
	Descendants *int64
	Author      string
}

// DisplayDate formats a unix timestamp as a YYYYMMDD string in UTC.
func DisplayDate(unixTime uint64) (string, error) {
	if unixTime > 1<<62 {
		return "", errors.Errorf("timestamp %d out of range", unixTime)
	}
	return time.Unix(int64(unixTime), 0).UTC().Format("20060102"), nil
}

// Reader reads records from a CSV stream. The first line must be a
// header naming the columns, column order in the file does not matter.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	closer  io.Closer
}

// Open opens a dataset file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open dataset")
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads records from stream, which must start with a header line.
func NewReader(stream io.Reader) (*Reader, error) {
	cr := csv.NewReader(stream)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read dataset header")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range []string{"id", "title"} {
		if _, ok := columns[name]; !ok {
			return nil, errors.Errorf("dataset is missing the %q column", name)
		}
	}
	return &Reader{csv: cr, columns: columns}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Record, error) {
	row, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.WithMessage(err, "failed to read dataset row")
	}

	var record Record
	record.By = r.stringField(row, "by")
	record.TimeTS = r.stringField(row, "time_ts")
	record.Title = r.stringField(row, "title")
	record.URL = r.stringField(row, "url")
	record.Text = r.stringField(row, "text")
	record.Author = r.stringField(row, "author")

	record.ID, err = strconv.ParseUint(r.stringField(row, "id"), 10, 64)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid id")
	}
	record.Score, err = r.uint64Field(row, "score")
	if err != nil {
		return nil, err
	}
	record.Time, err = r.uint64Field(row, "time")
	if err != nil {
		return nil, err
	}
	record.Descendants, err = r.int64Field(row, "descendants")
	if err != nil {
		return nil, err
	}
	record.Deleted, err = r.boolField(row, "deleted")
	if err != nil {
		return nil, err
	}
	record.Dead, err = r.boolField(row, "dead")
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) stringField(row []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (r *Reader) uint64Field(row []string, name string) (*uint64, error) {
	s := r.stringField(row, name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid %s", name)
	}
	return &v, nil
}

func (r *Reader) int64Field(row []string, name string) (*int64, error) {
	s := r.stringField(row, name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid %s", name)
	}
	return &v, nil
}

func (r *Reader) boolField(row []string, name string) (*bool, error) {
	s := r.stringField(row, name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid %s", name)
	}
	return &v, nil
}
