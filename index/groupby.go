package index

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
)

// Column identifies one column of the stored fields table.
type Column int

const (
	ColumnDocID Column = iota
	ColumnTitle
	ColumnDate
	ColumnScore
	ColumnDescendants
)

func ParseColumn(name string) (Column, error) {
	switch name {
	case "doc_id":
		return ColumnDocID, nil
	case "title":
		return ColumnTitle, nil
	case "date":
		return ColumnDate, nil
	case "score":
		return ColumnScore, nil
	case "descendants":
		return ColumnDescendants, nil
	}
	return 0, errors.Errorf("unknown column %q", name)
}

func (c Column) String() string {
	switch c {
	case ColumnDocID:
		return "doc_id"
	case ColumnTitle:
		return "title"
	case ColumnDate:
		return "date"
	case ColumnScore:
		return "score"
	case ColumnDescendants:
		return "descendants"
	}
	return "unknown"
}

func (c Column) valid() bool {
	return c >= ColumnDocID && c <= ColumnDescendants
}

// Numeric reports whether the column holds values that can be summed.
func (c Column) Numeric() bool {
	return c == ColumnScore || c == ColumnDescendants
}

// Group is one output row of a GroupBy call. Value is the display form
// of the grouping column for the first row seen in the group, Null is
// set when that value was absent.
type Group struct {
	Value string `json:"value"`
	Null  bool   `json:"null,omitempty"`
	Sum   int64  `json:"sum"`
	Count uint64 `json:"count"`
}

// GroupBy streams the rows in matches and accumulates a running sum of
// valueCol and a row count per distinct value of groupCol. Rows with an
// absent value add zero to the sum but are still counted. Groups come
// back in the order their first row was seen.
func (s *Store) GroupBy(matches *roaring.Bitmap, groupCol, valueCol Column) ([]Group, error) {
	if !groupCol.valid() {
		return nil, errors.Errorf("invalid group column %d", int(groupCol))
	}
	if !valueCol.Numeric() {
		return nil, errors.Errorf("column %v cannot be summed", valueCol)
	}

	var groups []Group
	lookup := make(map[string]int)
	key := make([]byte, 0, 64)

	err := s.scanStored(matches, func(row *storedRow) error {
		value, err := numericValue(row, valueCol)
		if err != nil {
			return err
		}
		key = appendGroupKey(key[:0], row, groupCol)
		if i, ok := lookup[string(key)]; ok {
			groups[i].Sum += value
			groups[i].Count++
			return nil
		}
		lookup[string(key)] = len(groups)
		value2, null := displayValue(row, groupCol)
		groups = append(groups, Group{Value: value2, Null: null, Sum: value, Count: 1})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// appendGroupKey appends a sort order preserving byte encoding of the
// column value, so that byte-equal keys imply equal values. An absent
// value encodes as a single zero byte that no present value starts with.
func appendGroupKey(dst []byte, row *storedRow, col Column) []byte {
	switch col {
	case ColumnDocID:
		dst = append(dst, 1)
		return binary.BigEndian.AppendUint64(dst, row.docID)
	case ColumnTitle:
		dst = append(dst, 1)
		return append(dst, row.title...)
	case ColumnDate:
		if !row.hasDate {
			return append(dst, 0)
		}
		dst = append(dst, 1)
		return append(dst, row.date...)
	case ColumnScore:
		if !row.hasScore {
			return append(dst, 0)
		}
		dst = append(dst, 1)
		return binary.BigEndian.AppendUint64(dst, row.score)
	case ColumnDescendants:
		if !row.hasDescendants {
			return append(dst, 0)
		}
		dst = append(dst, 1)
		return binary.BigEndian.AppendUint64(dst, uint64(row.descendants)^(1<<63))
	}
	return dst
}

func displayValue(row *storedRow, col Column) (string, bool) {
	switch col {
	case ColumnDocID:
		return strconv.FormatUint(row.docID, 10), false
	case ColumnTitle:
		return row.title, false
	case ColumnDate:
		if !row.hasDate {
			return "", true
		}
		return row.date, false
	case ColumnScore:
		if !row.hasScore {
			return "", true
		}
		return strconv.FormatUint(row.score, 10), false
	case ColumnDescendants:
		if !row.hasDescendants {
			return "", true
		}
		return strconv.FormatInt(row.descendants, 10), false
	}
	return "", true
}

func numericValue(row *storedRow, col Column) (int64, error) {
	switch col {
	case ColumnScore:
		if !row.hasScore {
			return 0, nil
		}
		if row.score > math.MaxInt64 {
			return 0, errors.Errorf("score %d overflows the sum", row.score)
		}
		return int64(row.score), nil
	case ColumnDescendants:
		if !row.hasDescendants {
			return 0, nil
		}
		return row.descendants, nil
	}
	return 0, errors.Errorf("column %v cannot be summed", col)
}
