package index

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// Document is the projection of a stored row that gets reported back
// for matching documents.
type Document struct {
	ID    uint32 `json:"id"`
	DocID uint64 `json:"doc_id"`
	Title string `json:"title"`
}

// storedRow is one row of the stored fields file. The id is the dense
// surrogate id assigned at build time, docID is the identifier the
// document came with.
type storedRow struct {
	id             uint32
	docID          uint64
	title          string
	date           string
	hasDate        bool
	score          uint64
	hasScore       bool
	descendants    int64
	hasDescendants bool
}

// TokenizeTitle splits a title into the words that get indexed, the
// same way at build time and in tests. Words are whitespace separated
// and folded to lower case, the index never sees the original casing.
func TokenizeTitle(title string) []string {
	words := strings.Fields(title)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return words
}

func encodeRow(buf *bytes.Buffer, row *storedRow) {
	var scratch [binary.MaxVarintLen64]byte

	binary.LittleEndian.PutUint32(scratch[:4], row.id)
	buf.Write(scratch[:4])
	binary.LittleEndian.PutUint64(scratch[:8], row.docID)
	buf.Write(scratch[:8])

	n := binary.PutUvarint(scratch[:], uint64(len(row.title)))
	buf.Write(scratch[:n])
	buf.WriteString(row.title)

	if row.hasDate {
		buf.WriteByte(1)
		n = binary.PutUvarint(scratch[:], uint64(len(row.date)))
		buf.Write(scratch[:n])
		buf.WriteString(row.date)
	} else {
		buf.WriteByte(0)
	}

	if row.hasScore {
		buf.WriteByte(1)
		binary.LittleEndian.PutUint64(scratch[:8], row.score)
		buf.Write(scratch[:8])
	} else {
		buf.WriteByte(0)
	}

	if row.hasDescendants {
		buf.WriteByte(1)
		binary.LittleEndian.PutUint64(scratch[:8], uint64(row.descendants))
		buf.Write(scratch[:8])
	} else {
		buf.WriteByte(0)
	}
}

func decodeRow(data []byte, row *storedRow) (int, error) {
	if len(data) < 12 {
		return 0, ErrInvalidStoredPage
	}
	row.id = binary.LittleEndian.Uint32(data)
	row.docID = binary.LittleEndian.Uint64(data[4:])
	ptr := 12

	title, n, err := decodeString(data[ptr:])
	if err != nil {
		return 0, err
	}
	row.title = title
	ptr += n

	row.date = ""
	present, n, err := decodeFlag(data[ptr:])
	if err != nil {
		return 0, err
	}
	row.hasDate = present
	ptr += n
	if present {
		date, n, err := decodeString(data[ptr:])
		if err != nil {
			return 0, err
		}
		row.date = date
		ptr += n
	}

	row.score = 0
	present, n, err = decodeFlag(data[ptr:])
	if err != nil {
		return 0, err
	}
	row.hasScore = present
	ptr += n
	if present {
		if len(data)-ptr < 8 {
			return 0, ErrInvalidStoredPage
		}
		row.score = binary.LittleEndian.Uint64(data[ptr:])
		ptr += 8
	}

	row.descendants = 0
	present, n, err = decodeFlag(data[ptr:])
	if err != nil {
		return 0, err
	}
	row.hasDescendants = present
	ptr += n
	if present {
		if len(data)-ptr < 8 {
			return 0, ErrInvalidStoredPage
		}
		row.descendants = int64(binary.LittleEndian.Uint64(data[ptr:]))
		ptr += 8
	}

	return ptr, nil
}

func decodeString(data []byte) (string, int, error) {
	length, n := binary.Uvarint(data)
	if n <= 0 || length > uint64(len(data)-n) {
		return "", 0, ErrInvalidStoredPage
	}
	return string(data[n : n+int(length)]), n + int(length), nil
}

func decodeFlag(data []byte) (bool, int, error) {
	if len(data) < 1 {
		return false, 0, ErrInvalidStoredPage
	}
	switch data[0] {
	case 0:
		return false, 1, nil
	case 1:
		return true, 1, nil
	}
	return false, 0, errors.Wrapf(ErrInvalidStoredPage, "invalid field flag 0x%02x", data[0])
}
