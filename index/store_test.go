// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package index

import (
	"fmt"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaman64/anubistats/dataset"
	"github.com/pandaman64/anubistats/query"
)

// countingDir wraps a Dir and counts ReadAt calls per file, so tests
// can observe which files a lookup actually touched.
type countingDir struct {
	Dir
	reads map[string]int
}

func newCountingDir(dir Dir) *countingDir {
	return &countingDir{Dir: dir, reads: make(map[string]int)}
}

func (d *countingDir) OpenFile(name string) (FileReader, error) {
	file, err := d.Dir.OpenFile(name)
	if err != nil {
		return nil, err
	}
	return &countingFile{FileReader: file, dir: d, name: name}, nil
}

type countingFile struct {
	FileReader
	dir  *countingDir
	name string
}

func (f *countingFile) ReadAt(p []byte, off int64) (int, error) {
	f.dir.reads[f.name]++
	return f.FileReader.ReadAt(p, off)
}

func TestStore_ReadPostings_AbsentWord(t *testing.T) {
	store := buildIndex(t, NewMemDir(), titleRecords("foo bar"))

	matches, err := store.ReadPostings("baz")
	require.NoError(t, err)
	assert.True(t, matches.IsEmpty())
}

func TestStore_EvalLaws(t *testing.T) {
	store := buildIndex(t, NewMemDir(), titleRecords(
		"Rust is fast",
		"Go is simple",
		"rust and go",
	))

	words := []query.Query{
		query.Word("rust"),
		query.Word("go"),
		query.Word("is"),
		query.Word("absent"),
	}
	for _, a := range words {
		for _, b := range words {
			ea, err := store.Eval(a)
			require.NoError(t, err)
			eb, err := store.Eval(b)
			require.NoError(t, err)

			and, err := store.Eval(query.And{LHS: a, RHS: b})
			require.NoError(t, err)
			require.Equal(t, roaring.And(ea, eb).ToArray(), and.ToArray(), "And(%v, %v)", a, b)

			or, err := store.Eval(query.Or{LHS: a, RHS: b})
			require.NoError(t, err)
			require.Equal(t, roaring.Or(ea, eb).ToArray(), or.ToArray(), "Or(%v, %v)", a, b)

			andFlipped, err := store.Eval(query.And{LHS: b, RHS: a})
			require.NoError(t, err)
			require.Equal(t, and.ToArray(), andFlipped.ToArray())
		}
	}
}

func TestStore_TermsBlockPruning(t *testing.T) {
	// Enough distinct words that the dictionary spans several blocks.
	titles := make([]string, 1500)
	for i := range titles {
		titles[i] = fmt.Sprintf("w%04d", i)
	}
	mem := NewMemDir()
	buildIndex(t, mem, titleRecords(titles...))

	dir := newCountingDir(mem)
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	blocks := store.manifest.Terms.Blocks
	require.Greater(t, len(blocks), 1, "test needs a multi-block dictionary")
	termsName := termsFileName(store.manifest.ID)
	postingsName := postingsFileName(store.manifest.ID)

	// Below the first block and above the last one, the block statistics
	// answer without any read.
	for _, word := range []string{"a", "zzz"} {
		matches, err := store.ReadPostings(word)
		require.NoError(t, err)
		assert.True(t, matches.IsEmpty())
		assert.Equal(t, 0, dir.reads[termsName], "lookup of %q read the terms file", word)
	}

	// A word falling in the gap between two blocks is also pruned.
	gap := blocks[0].MaxWord + "a"
	require.Less(t, gap, blocks[1].MinWord)
	matches, err := store.ReadPostings(gap)
	require.NoError(t, err)
	assert.True(t, matches.IsEmpty())
	assert.Equal(t, 0, dir.reads[termsName])

	// A present word reads exactly one dictionary block and one range
	// of the postings file.
	matches, err = store.ReadPostings(blocks[1].MinWord)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), matches.GetCardinality())
	assert.Equal(t, 1, dir.reads[termsName])
	assert.Equal(t, 1, dir.reads[postingsName])

	// An absent word inside a block's range reads the block but never
	// touches the postings file.
	inside := blocks[1].MinWord + "a"
	require.LessOrEqual(t, inside, blocks[1].MaxWord)
	matches, err = store.ReadPostings(inside)
	require.NoError(t, err)
	assert.True(t, matches.IsEmpty())
	assert.Equal(t, 2, dir.reads[termsName])
	assert.Equal(t, 1, dir.reads[postingsName])
}

func TestStore_StoredPagePruning(t *testing.T) {
	records := titleRecords(make([]string, 2500)...)
	for i := range records {
		records[i].Title = "entry"
	}
	mem := NewMemDir()
	buildIndex(t, mem, records)

	dir := newCountingDir(mem)
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, 3, len(store.manifest.Stored.Pages))
	storedName := storedFileName(store.manifest.ID)

	docs, err := store.Fetch(roaring.BitmapOf(2400))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, uint32(2400), docs[0].ID)
	assert.Equal(t, 1, dir.reads[storedName], "a single-page match should read one page")

	dir.reads[storedName] = 0
	docs, err = store.Fetch(roaring.BitmapOf(10, 2400))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 2, dir.reads[storedName], "matches in two pages should read two pages")

	dir.reads[storedName] = 0
	docs, err = store.Fetch(roaring.New())
	require.NoError(t, err)
	require.Empty(t, docs)
	assert.Equal(t, 0, dir.reads[storedName], "an empty match set should read nothing")
}

func TestStore_OpenTruncatedPostings(t *testing.T) {
	mem := NewMemDir()
	store := buildIndex(t, mem, titleRecords("foo bar baz"))
	store.Close()

	entries := mem.(*memDir).entries
	name := postingsFileName(1)
	entries[name] = entries[name][:len(entries[name])-1]

	_, err := Open(mem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postings file")
}

func TestStore_CorruptPostings(t *testing.T) {
	mem := NewMemDir()
	buildIndex(t, mem, titleRecords("foo bar baz"))

	entries := mem.(*memDir).entries
	name := postingsFileName(1)
	for i := range entries[name] {
		entries[name][i] = 0xff
	}

	store, err := Open(mem)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.ReadPostings("foo")
	require.Error(t, err)
}

func TestStore_CorruptTermsBlock(t *testing.T) {
	mem := NewMemDir()
	buildIndex(t, mem, titleRecords("foo bar baz"))

	// Byte 10 is the word length of the first dictionary entry, right
	// after the block header.
	entries := mem.(*memDir).entries
	entries[termsFileName(1)][10] = 0xff

	store, err := Open(mem)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.ReadPostings("foo")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidTermsBlock, errors.Cause(err))
}

func TestStore_CorruptStoredPage(t *testing.T) {
	mem := NewMemDir()
	buildIndex(t, mem, []dataset.Record{{ID: 1, Title: ""}})

	// Byte 13 of the first row is the date presence flag.
	entries := mem.(*memDir).entries
	entries[storedFileName(1)][13] = 0x07

	store, err := Open(mem)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Fetch(roaring.BitmapOf(0))
	require.Error(t, err)
	assert.Equal(t, ErrInvalidStoredPage, errors.Cause(err))
}

func TestStore_CloseTwice(t *testing.T) {
	store := buildIndex(t, NewMemDir(), titleRecords("foo"))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
