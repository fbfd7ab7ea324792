package index

import (
	"bufio"
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// The terms file is a sequence of fixed size dictionary blocks. Each
// block starts with a small header (entry count and the postings file
// offset of the first entry) followed by tightly packed entries of the
// form {uvarint word length, word bytes, uvarint postings length} and
// zero padding up to the block size. Posting lists are laid out in the
// postings file in the same order as the dictionary entries, so an
// entry's offset is the running sum of the lengths before it.
const (
	DefaultTermsBlockSize = 4096
	termsBlockHeaderSize  = 10
)

var (
	ErrInvalidTermsBlock  = errors.New("invalid terms block")
	ErrInvalidStoredPage  = errors.New("invalid stored page")
	ErrPostingsOutOfRange = errors.New("postings list out of range")
)

type termsWriter struct {
	writer    *bufio.Writer
	blockSize int

	block   []byte
	count   int
	base    int64
	minWord string
	maxWord string

	info TermsInfo
	next int64
}

func newTermsWriter(w io.Writer, blockSize int) *termsWriter {
	return &termsWriter{
		writer:    bufio.NewWriter(w),
		blockSize: blockSize,
		block:     make([]byte, 0, blockSize),
		info:      TermsInfo{BlockSize: blockSize},
	}
}

// Add appends a dictionary entry for a posting list of the given
// serialized length. Words must be added in strictly increasing order,
// matching the order their posting lists are written in.
func (tw *termsWriter) Add(word string, length int64) error {
	if tw.info.NumWords > 0 && word <= tw.maxWord {
		return errors.Errorf("word %q added out of order", word)
	}

	var scratch [2 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(word)))
	n += binary.PutUvarint(scratch[n:], uint64(length))

	entrySize := n + len(word)
	if entrySize > tw.blockSize-termsBlockHeaderSize {
		return errors.Errorf("word %q does not fit in a %d byte terms block", word, tw.blockSize)
	}
	if termsBlockHeaderSize+len(tw.block)+entrySize > tw.blockSize {
		if err := tw.flushBlock(); err != nil {
			return err
		}
	}

	if tw.count == 0 {
		tw.base = tw.next
		tw.minWord = word
	}
	wn := binary.PutUvarint(scratch[:], uint64(len(word)))
	tw.block = append(tw.block, scratch[:wn]...)
	tw.block = append(tw.block, word...)
	ln := binary.PutUvarint(scratch[:], uint64(length))
	tw.block = append(tw.block, scratch[:ln]...)

	tw.count++
	tw.maxWord = word
	tw.next += length
	tw.info.NumWords++
	return nil
}

// Flush writes out the final partial block and returns the geometry
// for the manifest.
func (tw *termsWriter) Flush() (TermsInfo, error) {
	if tw.count > 0 {
		if err := tw.flushBlock(); err != nil {
			return TermsInfo{}, err
		}
	}
	if err := tw.writer.Flush(); err != nil {
		return TermsInfo{}, err
	}
	tw.info.DataSize = tw.next
	return tw.info, nil
}

func (tw *termsWriter) flushBlock() error {
	var header [termsBlockHeaderSize]byte
	binary.LittleEndian.PutUint16(header[0:], uint16(tw.count))
	binary.LittleEndian.PutUint64(header[2:], uint64(tw.base))

	if _, err := tw.writer.Write(header[:]); err != nil {
		return err
	}
	if _, err := tw.writer.Write(tw.block); err != nil {
		return err
	}
	for i := termsBlockHeaderSize + len(tw.block); i < tw.blockSize; i++ {
		if err := tw.writer.WriteByte(0); err != nil {
			return err
		}
	}

	tw.info.NumBlocks++
	tw.info.Blocks = append(tw.info.Blocks, TermsBlock{MinWord: tw.minWord, MaxWord: tw.maxWord})
	tw.block = tw.block[:0]
	tw.count = 0
	return nil
}

// findTermsBlock returns the index of the only block that can contain
// the word, or -1 if the block statistics already rule every block out.
func findTermsBlock(blocks []TermsBlock, word string) int {
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].MaxWord >= word })
	if i == len(blocks) || blocks[i].MinWord > word {
		return -1
	}
	return i
}

// searchTermsBlock scans one decoded block for the word. Entries are
// sorted, the scan stops early once a later word is seen. The returned
// offset is relative to the start of the postings file.
func searchTermsBlock(data []byte, word string) (offset int64, length int64, found bool, err error) {
	if len(data) < termsBlockHeaderSize {
		return 0, 0, false, ErrInvalidTermsBlock
	}
	count := int(binary.LittleEndian.Uint16(data[0:]))
	offset = int64(binary.LittleEndian.Uint64(data[2:]))

	ptr := termsBlockHeaderSize
	for i := 0; i < count; i++ {
		wordLen, n := binary.Uvarint(data[ptr:])
		if n <= 0 || wordLen > uint64(len(data)-ptr-n) {
			return 0, 0, false, errors.Wrapf(ErrInvalidTermsBlock, "entry %d", i)
		}
		ptr += n
		entryWord := data[ptr : ptr+int(wordLen)]
		ptr += int(wordLen)

		entryLen, n := binary.Uvarint(data[ptr:])
		if n <= 0 {
			return 0, 0, false, errors.Wrapf(ErrInvalidTermsBlock, "entry %d", i)
		}
		ptr += n

		if string(entryWord) == word {
			return offset, int64(entryLen), true, nil
		}
		if string(entryWord) > word {
			return 0, 0, false, nil
		}
		offset += int64(entryLen)
	}
	return 0, 0, false, nil
}
