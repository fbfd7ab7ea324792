// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package index

import (
	"bytes"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"go4.org/syncutil"

	"github.com/pandaman64/anubistats/query"
)

// Store is a read-only view of a built index. It holds open file
// handles to the data files named by the manifest, so it must be
// closed after use. A Store can serve any number of concurrent
// queries, nothing mutates it after Open.
type Store struct {
	dir      Dir
	manifest Manifest
	postings FileReader
	terms    FileReader
	stored   FileReader
	close    syncutil.Once
}

// Open opens the index in dir. It fails if the directory holds no
// manifest or if the data files do not match the manifest geometry.
func Open(dir Dir) (*Store, error) {
	s := &Store{dir: dir}
	if err := s.manifest.Load(dir); err != nil {
		return nil, errors.Wrap(err, "failed to open the manifest")
	}

	var err error
	s.postings, err = dir.OpenFile(postingsFileName(s.manifest.ID))
	if err == nil {
		s.terms, err = dir.OpenFile(termsFileName(s.manifest.ID))
	}
	if err == nil {
		s.stored, err = dir.OpenFile(storedFileName(s.manifest.ID))
	}
	if err == nil {
		err = s.checkSizes()
	}
	if err != nil {
		s.closeFiles()
		return nil, errors.Wrapf(err, "failed to open index %v", s.manifest.ID)
	}
	return s, nil
}

// checkSizes verifies that each data file is exactly as long as the
// manifest says it should be, catching truncated or mismatched files
// before any lookup trusts their contents.
func (s *Store) checkSizes() error {
	size, err := s.postings.Size()
	if err != nil {
		return err
	}
	if size != s.manifest.Terms.DataSize {
		return errors.Errorf("postings file is %d bytes, manifest says %d", size, s.manifest.Terms.DataSize)
	}

	size, err = s.terms.Size()
	if err != nil {
		return err
	}
	want := int64(s.manifest.Terms.BlockSize) * int64(s.manifest.Terms.NumBlocks)
	if size != want {
		return errors.Errorf("terms file is %d bytes, manifest says %d", size, want)
	}

	size, err = s.stored.Size()
	if err != nil {
		return err
	}
	want = 0
	if n := len(s.manifest.Stored.Pages); n > 0 {
		last := s.manifest.Stored.Pages[n-1]
		want = last.Offset + int64(last.Length)
	}
	if size != want {
		return errors.Errorf("stored fields file is %d bytes, manifest says %d", size, want)
	}
	return nil
}

func (s *Store) Close() error {
	return s.close.Do(s.closeFiles)
}

func (s *Store) closeFiles() error {
	var firstErr error
	for _, file := range []FileReader{s.postings, s.terms, s.stored} {
		if file == nil {
			continue
		}
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) Path() string {
	return s.dir.Path()
}

// ID returns the build id of the index the store has open.
func (s *Store) ID() uint32 {
	return s.manifest.ID
}

func (s *Store) NumDocs() int {
	return s.manifest.NumDocs
}

func (s *Store) NumWords() int {
	return s.manifest.Terms.NumWords
}

// ReadPostings returns the posting list for one word. A word the index
// has never seen yields an empty bitmap, not an error. The dictionary
// block statistics usually answer that case without touching the
// terms file at all.
func (s *Store) ReadPostings(word string) (*roaring.Bitmap, error) {
	i := findTermsBlock(s.manifest.Terms.Blocks, word)
	if i < 0 {
		return roaring.New(), nil
	}

	blockSize := s.manifest.Terms.BlockSize
	block := make([]byte, blockSize)
	if _, err := s.terms.ReadAt(block, int64(i)*int64(blockSize)); err != nil {
		return nil, errors.Wrapf(err, "failed to read terms block %d", i)
	}
	offset, length, found, err := searchTermsBlock(block, word)
	if err != nil {
		return nil, errors.Wrapf(err, "terms block %d", i)
	}
	if !found {
		return roaring.New(), nil
	}
	if offset < 0 || length < 0 || length > math.MaxInt64-offset || offset+length > s.manifest.Terms.DataSize {
		return nil, errors.Wrapf(ErrPostingsOutOfRange, "word %q at [%d, %d)", word, offset, offset+length)
	}

	data := make([]byte, length)
	if _, err := s.postings.ReadAt(data, offset); err != nil {
		return nil, errors.Wrapf(err, "failed to read the posting list for %q", word)
	}
	postings := roaring.New()
	if _, err := postings.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(err, "failed to decode the posting list for %q", word)
	}
	return postings, nil
}

// Eval evaluates a parsed query into the set of matching surrogate
// ids. Word leaves resolve through ReadPostings, AND intersects and OR
// unions the child results. Both children of a binary node are always
// evaluated, there is no short-circuiting to benefit from once the
// posting lists have to be materialized anyway.
func (s *Store) Eval(q query.Query) (*roaring.Bitmap, error) {
	switch q := q.(type) {
	case query.Word:
		return s.ReadPostings(string(q))
	case query.And:
		lhs, err := s.Eval(q.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := s.Eval(q.RHS)
		if err != nil {
			return nil, err
		}
		lhs.And(rhs)
		return lhs, nil
	case query.Or:
		lhs, err := s.Eval(q.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := s.Eval(q.RHS)
		if err != nil {
			return nil, err
		}
		lhs.Or(rhs)
		return lhs, nil
	}
	return nil, errors.Errorf("unsupported query node %T", q)
}
