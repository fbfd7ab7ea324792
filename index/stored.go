package index

import (
	"bufio"
	"bytes"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
)

const DefaultStoredPageRows = 1024

type storedWriter struct {
	writer   *bufio.Writer
	pageRows int

	buf   bytes.Buffer
	rows  int
	minID uint32
	maxID uint32

	offset int64
	info   StoredInfo
}

func newStoredWriter(w io.Writer, pageRows int) *storedWriter {
	return &storedWriter{
		writer:   bufio.NewWriter(w),
		pageRows: pageRows,
	}
}

// Add appends one row to the current page, starting a new page once
// the row count limit is reached. Rows arrive in surrogate id order,
// which is what makes the per-page id bounds useful for pruning.
func (sw *storedWriter) Add(row *storedRow) error {
	if sw.rows == 0 {
		sw.minID = row.id
	}
	encodeRow(&sw.buf, row)
	sw.maxID = row.id
	sw.rows++
	if sw.rows >= sw.pageRows {
		return sw.flushPage()
	}
	return nil
}

func (sw *storedWriter) Flush() (StoredInfo, error) {
	if sw.rows > 0 {
		if err := sw.flushPage(); err != nil {
			return StoredInfo{}, err
		}
	}
	if err := sw.writer.Flush(); err != nil {
		return StoredInfo{}, err
	}
	return sw.info, nil
}

func (sw *storedWriter) flushPage() error {
	length := sw.buf.Len()
	if _, err := sw.writer.Write(sw.buf.Bytes()); err != nil {
		return err
	}
	sw.info.Pages = append(sw.info.Pages, StoredPage{
		Offset:  sw.offset,
		Length:  length,
		MinID:   sw.minID,
		MaxID:   sw.maxID,
		NumRows: sw.rows,
	})
	sw.info.NumRows += sw.rows
	sw.offset += int64(length)
	sw.buf.Reset()
	sw.rows = 0
	return nil
}

// bitmapIntersectsRange reports whether the bitmap has at least one
// member in [lo, hi].
func bitmapIntersectsRange(bm *roaring.Bitmap, lo, hi uint32) bool {
	n := bm.Rank(hi)
	if lo > 0 {
		n -= bm.Rank(lo - 1)
	}
	return n > 0
}

// scanStored streams the stored rows whose surrogate id is in matches,
// in storage order. Pages whose id bounds cannot intersect the match
// set are skipped without being read.
func (s *Store) scanStored(matches *roaring.Bitmap, fn func(row *storedRow) error) error {
	if matches.IsEmpty() {
		return nil
	}
	var row storedRow
	for i := range s.manifest.Stored.Pages {
		page := &s.manifest.Stored.Pages[i]
		if !bitmapIntersectsRange(matches, page.MinID, page.MaxID) {
			continue
		}
		data := make([]byte, page.Length)
		if _, err := s.stored.ReadAt(data, page.Offset); err != nil {
			return errors.Wrapf(err, "failed to read stored page %d", i)
		}
		ptr := 0
		for r := 0; r < page.NumRows; r++ {
			n, err := decodeRow(data[ptr:], &row)
			if err != nil {
				return errors.Wrapf(err, "stored page %d, row %d", i, r)
			}
			ptr += n
			if row.id < page.MinID || row.id > page.MaxID {
				return errors.Wrapf(ErrInvalidStoredPage, "row id %d outside the bounds of page %d", row.id, i)
			}
			if matches.Contains(row.id) {
				if err := fn(&row); err != nil {
					return err
				}
			}
		}
		if ptr != len(data) {
			return errors.Wrapf(ErrInvalidStoredPage, "%d trailing bytes in page %d", len(data)-ptr, i)
		}
	}
	return nil
}

// Fetch reads the stored fields of every document in matches. Results
// come back in surrogate id order, the order the rows are stored in.
func (s *Store) Fetch(matches *roaring.Bitmap) ([]Document, error) {
	docs := make([]Document, 0, matches.GetCardinality())
	err := s.scanStored(matches, func(row *storedRow) error {
		docs = append(docs, Document{ID: row.id, DocID: row.docID, Title: row.title})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
