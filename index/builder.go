// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package index

import (
	"bufio"
	"log"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"go4.org/sort"

	"github.com/pandaman64/anubistats/dataset"
)

// Builder accumulates documents and writes them out as a complete
// index. Every build is a full rebuild, committing replaces whatever
// index the directory held before.
type Builder struct {
	dir      Dir
	postings map[string]*roaring.Bitmap
	rows     []storedRow
	checksum uint32
}

func NewBuilder(dir Dir) *Builder {
	return &Builder{
		dir:      dir,
		postings: make(map[string]*roaring.Bitmap),
	}
}

// Add indexes one document. Surrogate ids are assigned densely in call
// order, the first document gets id 0.
func (b *Builder) Add(rec *dataset.Record) error {
	if uint64(len(b.rows)) > math.MaxUint32 {
		return errors.New("too many documents, surrogate id space exhausted")
	}
	id := uint32(len(b.rows))

	for _, word := range TokenizeTitle(rec.Title) {
		postings := b.postings[word]
		if postings == nil {
			postings = roaring.New()
			b.postings[word] = postings
		}
		postings.Add(id)
		b.checksum += id + uint32(len(word))
	}

	row := storedRow{id: id, docID: rec.ID, title: rec.Title}
	if rec.Time != nil {
		date, err := dataset.DisplayDate(*rec.Time)
		if err != nil {
			return errors.WithMessagef(err, "document %d", rec.ID)
		}
		row.date = date
		row.hasDate = true
	}
	if rec.Score != nil {
		row.score = *rec.Score
		row.hasScore = true
	}
	if rec.Descendants != nil {
		row.descendants = *rec.Descendants
		row.hasDescendants = true
	}
	b.rows = append(b.rows, row)
	return nil
}

func (b *Builder) NumDocs() int {
	return len(b.rows)
}

func (b *Builder) NumWords() int {
	return len(b.postings)
}

// Commit writes the postings, terms and stored fields files and then
// the manifest that makes them visible. Data files from an older build
// are removed once the new manifest is in place.
func (b *Builder) Commit() error {
	started := time.Now()

	id, err := b.nextID()
	if err != nil {
		return err
	}

	words := make([]string, 0, len(b.postings))
	for word := range b.postings {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool { return words[i] < words[j] })

	termsInfo, err := b.writePostings(id, words)
	if err != nil {
		return err
	}
	storedInfo, err := b.writeStored(id)
	if err != nil {
		return err
	}

	manifest := Manifest{
		ID:       id,
		NumDocs:  len(b.rows),
		Checksum: b.checksum,
		Terms:    termsInfo,
		Stored:   storedInfo,
	}
	if err := manifest.Save(b.dir); err != nil {
		return errors.Wrap(err, "failed to save the manifest")
	}

	b.removeStaleFiles(id)

	log.Printf("committed index %v (docs=%v, words=%v, blocks=%v, pages=%v, checksum=0x%08x, duration=%s)",
		id, manifest.NumDocs, termsInfo.NumWords, termsInfo.NumBlocks, len(storedInfo.Pages), manifest.Checksum, time.Since(started))
	return nil
}

// nextID picks the id for the new data files, one past the id the
// directory's current manifest refers to.
func (b *Builder) nextID() (uint32, error) {
	var manifest Manifest
	err := manifest.Load(b.dir)
	if err != nil {
		if IsNotExist(errors.Cause(err)) {
			return 1, nil
		}
		return 0, errors.Wrap(err, "failed to load the previous manifest")
	}
	return manifest.ID + 1, nil
}

// writePostings writes the concatenated posting lists and the
// dictionary that locates them.
func (b *Builder) writePostings(id uint32, words []string) (TermsInfo, error) {
	postingsFile, err := b.dir.CreateFile(postingsFileName(id))
	if err != nil {
		return TermsInfo{}, errors.Wrap(err, "create failed")
	}
	defer postingsFile.Close()

	termsFile, err := b.dir.CreateFile(termsFileName(id))
	if err != nil {
		return TermsInfo{}, errors.Wrap(err, "create failed")
	}
	defer termsFile.Close()

	writer := bufio.NewWriter(postingsFile)
	terms := newTermsWriter(termsFile, DefaultTermsBlockSize)
	for _, word := range words {
		postings := b.postings[word]
		postings.RunOptimize()
		n, err := postings.WriteTo(writer)
		if err != nil {
			return TermsInfo{}, errors.Wrapf(err, "failed to write the posting list for %q", word)
		}
		if err := terms.Add(word, n); err != nil {
			return TermsInfo{}, err
		}
	}
	if err := writer.Flush(); err != nil {
		return TermsInfo{}, err
	}
	info, err := terms.Flush()
	if err != nil {
		return TermsInfo{}, err
	}

	if err := postingsFile.Commit(); err != nil {
		return TermsInfo{}, errors.Wrap(err, "file commit failed")
	}
	if err := termsFile.Commit(); err != nil {
		return TermsInfo{}, errors.Wrap(err, "file commit failed")
	}
	return info, nil
}

func (b *Builder) writeStored(id uint32) (StoredInfo, error) {
	storedFile, err := b.dir.CreateFile(storedFileName(id))
	if err != nil {
		return StoredInfo{}, errors.Wrap(err, "create failed")
	}
	defer storedFile.Close()

	stored := newStoredWriter(storedFile, DefaultStoredPageRows)
	for i := range b.rows {
		if err := stored.Add(&b.rows[i]); err != nil {
			return StoredInfo{}, err
		}
	}
	info, err := stored.Flush()
	if err != nil {
		return StoredInfo{}, err
	}

	if err := storedFile.Commit(); err != nil {
		return StoredInfo{}, errors.Wrap(err, "file commit failed")
	}
	return info, nil
}

// removeStaleFiles drops data files that the new manifest no longer
// refers to. Failures only get logged, a leftover file is harmless.
func (b *Builder) removeStaleFiles(id uint32) {
	names, err := b.dir.ListFiles()
	if err != nil {
		log.Printf("failed to list index files: %v", err)
		return
	}
	keep := map[string]bool{
		postingsFileName(id): true,
		termsFileName(id):    true,
		storedFileName(id):   true,
	}
	for _, name := range names {
		if keep[name] || !isArtifactFileName(name) {
			continue
		}
		if err := b.dir.RemoveFile(name); err != nil {
			log.Printf("failed to remove stale index file %v: %v", name, err)
		} else {
			log.Printf("removed stale index file %v", name)
		}
	}
}
