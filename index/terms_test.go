package index

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermsWriter_SingleBlock(t *testing.T) {
	var buf bytes.Buffer
	tw := newTermsWriter(&buf, 128)
	require.NoError(t, tw.Add("apple", 10))
	require.NoError(t, tw.Add("banana", 20))
	require.NoError(t, tw.Add("cherry", 5))
	info, err := tw.Flush()
	require.NoError(t, err)

	assert.Equal(t, 128, info.BlockSize)
	assert.Equal(t, 1, info.NumBlocks)
	assert.Equal(t, 3, info.NumWords)
	assert.Equal(t, int64(35), info.DataSize)
	assert.Equal(t, []TermsBlock{{MinWord: "apple", MaxWord: "cherry"}}, info.Blocks)
	assert.Equal(t, 128, buf.Len())

	block := buf.Bytes()
	cases := []struct {
		word   string
		offset int64
		length int64
		found  bool
	}{
		{"apple", 0, 10, true},
		{"banana", 10, 20, true},
		{"cherry", 30, 5, true},
		{"aardvark", 0, 0, false},
		{"blueberry", 0, 0, false},
		{"zucchini", 0, 0, false},
	}
	for _, c := range cases {
		offset, length, found, err := searchTermsBlock(block, c.word)
		require.NoError(t, err)
		assert.Equal(t, c.found, found, "word %q", c.word)
		if c.found {
			assert.Equal(t, c.offset, offset, "word %q", c.word)
			assert.Equal(t, c.length, length, "word %q", c.word)
		}
	}
}

func TestTermsWriter_MultipleBlocks(t *testing.T) {
	var buf bytes.Buffer
	tw := newTermsWriter(&buf, 32)
	require.NoError(t, tw.Add("apple", 3))
	require.NoError(t, tw.Add("banana", 4))
	require.NoError(t, tw.Add("cherry", 5))
	require.NoError(t, tw.Add("durian", 6))
	info, err := tw.Flush()
	require.NoError(t, err)

	assert.Equal(t, 2, info.NumBlocks)
	assert.Equal(t, 4, info.NumWords)
	assert.Equal(t, int64(18), info.DataSize)
	require.Equal(t, []TermsBlock{
		{MinWord: "apple", MaxWord: "banana"},
		{MinWord: "cherry", MaxWord: "durian"},
	}, info.Blocks)
	require.Equal(t, 64, buf.Len())

	assert.Equal(t, 0, findTermsBlock(info.Blocks, "apple"))
	assert.Equal(t, 0, findTermsBlock(info.Blocks, "banana"))
	assert.Equal(t, 1, findTermsBlock(info.Blocks, "cherry"))
	assert.Equal(t, 1, findTermsBlock(info.Blocks, "durian"))
	assert.Equal(t, -1, findTermsBlock(info.Blocks, "aaa"))
	assert.Equal(t, -1, findTermsBlock(info.Blocks, "bzz"))
	assert.Equal(t, -1, findTermsBlock(info.Blocks, "zzz"))
	assert.Equal(t, -1, findTermsBlock(nil, "apple"))

	// The second block's offsets continue where the first block's
	// posting lists ended.
	block := buf.Bytes()[32:64]
	offset, length, found, err := searchTermsBlock(block, "cherry")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7), offset)
	assert.Equal(t, int64(5), length)

	offset, length, found, err = searchTermsBlock(block, "durian")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(12), offset)
	assert.Equal(t, int64(6), length)
}

func TestTermsWriter_OutOfOrder(t *testing.T) {
	var buf bytes.Buffer
	tw := newTermsWriter(&buf, 128)
	require.NoError(t, tw.Add("banana", 1))
	assert.Error(t, tw.Add("apple", 1))
	assert.Error(t, tw.Add("banana", 1))
}

func TestTermsWriter_WordTooLong(t *testing.T) {
	var buf bytes.Buffer
	tw := newTermsWriter(&buf, 32)
	word := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	assert.Error(t, tw.Add(word, 1))
}

func TestSearchTermsBlock_Corrupt(t *testing.T) {
	_, _, _, err := searchTermsBlock([]byte{1, 2, 3}, "foo")
	assert.Equal(t, ErrInvalidTermsBlock, errors.Cause(err))

	var buf bytes.Buffer
	tw := newTermsWriter(&buf, 128)
	require.NoError(t, tw.Add("apple", 10))
	_, err = tw.Flush()
	require.NoError(t, err)

	block := buf.Bytes()
	block[0] = 0xff
	block[1] = 0xff
	_, _, _, err = searchTermsBlock(block, "zoo")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidTermsBlock, errors.Cause(err))
}
