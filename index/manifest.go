// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const ManifestFilename = "manifest.json"

func postingsFileName(id uint32) string { return fmt.Sprintf("postings-%d.dat", id) }
func termsFileName(id uint32) string    { return fmt.Sprintf("terms-%d.dat", id) }
func storedFileName(id uint32) string   { return fmt.Sprintf("stored-%d.dat", id) }

// isArtifactFileName matches the data files written by builds, so that
// files left behind by an older build can be recognized and removed.
func isArtifactFileName(name string) bool {
	if !strings.HasSuffix(name, ".dat") {
		return false
	}
	return strings.HasPrefix(name, "postings-") ||
		strings.HasPrefix(name, "terms-") ||
		strings.HasPrefix(name, "stored-")
}

// TermsBlock describes one dictionary block in the terms file. Words
// inside a block are sorted, so [MinWord, MaxWord] bounds every word
// the block contains.
type TermsBlock struct {
	MinWord string `json:"min"`
	MaxWord string `json:"max"`
}

// TermsInfo describes the terms file and the postings file it points into.
type TermsInfo struct {
	BlockSize int          `json:"blocksize"`
	NumBlocks int          `json:"nblocks"`
	NumWords  int          `json:"nwords"`
	DataSize  int64        `json:"datasize"`
	Blocks    []TermsBlock `json:"blocks,omitempty"`
}

// StoredPage describes one page of the stored fields file. Surrogate
// ids are assigned in row order, so [MinID, MaxID] bounds every id the
// page contains.
type StoredPage struct {
	Offset  int64  `json:"offset"`
	Length  int    `json:"length"`
	MinID   uint32 `json:"minid"`
	MaxID   uint32 `json:"maxid"`
	NumRows int    `json:"nrows"`
}

// StoredInfo describes the stored fields file.
type StoredInfo struct {
	NumRows int          `json:"nrows"`
	Pages   []StoredPage `json:"pages,omitempty"`
}

// Manifest is the entry point to a built index. The ID names the data
// files the manifest refers to, every rebuild writes a fresh set and
// commits the manifest last, so readers always see a complete index.
type Manifest struct {
	ID       uint32     `json:"id"`
	NumDocs  int        `json:"ndocs"`
	Checksum uint32     `json:"checksum"`
	Terms    TermsInfo  `json:"terms"`
	Stored   StoredInfo `json:"stored"`
}

func (m *Manifest) Load(dir Dir) error {
	file, err := dir.OpenFile(ManifestFilename)
	if err != nil {
		return errors.Wrap(err, "open failed")
	}
	defer file.Close()
	err = json.NewDecoder(file).Decode(m)
	if err != nil {
		return errors.Wrap(err, "decode failed")
	}
	return m.check()
}

func (m *Manifest) Save(dir Dir) error {
	file, err := dir.CreateFile(ManifestFilename)
	if err != nil {
		return errors.Wrap(err, "create failed")
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(m)
	if err != nil {
		return errors.Wrap(err, "encode failed")
	}
	return file.Commit()
}

// check verifies that the manifest geometry is internally consistent.
// The file size checks against the actual artifacts happen in Open.
func (m *Manifest) check() error {
	if m.ID == 0 {
		return errors.New("missing manifest id")
	}
	if len(m.Terms.Blocks) != m.Terms.NumBlocks {
		return errors.Errorf("manifest lists %d terms blocks, expected %d", len(m.Terms.Blocks), m.Terms.NumBlocks)
	}
	if m.Terms.NumBlocks > 0 && m.Terms.BlockSize <= 0 {
		return errors.Errorf("invalid terms block size %d", m.Terms.BlockSize)
	}
	for i, block := range m.Terms.Blocks {
		if block.MinWord > block.MaxWord {
			return errors.Errorf("terms block %d has min word %q after max word %q", i, block.MinWord, block.MaxWord)
		}
		if i > 0 && m.Terms.Blocks[i-1].MaxWord >= block.MinWord {
			return errors.Errorf("terms block %d overlaps the previous block", i)
		}
	}
	numRows := 0
	var offset int64
	for i, page := range m.Stored.Pages {
		if page.Offset != offset {
			return errors.Errorf("stored page %d starts at offset %d, expected %d", i, page.Offset, offset)
		}
		if page.Length <= 0 || page.NumRows <= 0 {
			return errors.Errorf("stored page %d is empty", i)
		}
		if page.MinID > page.MaxID {
			return errors.Errorf("stored page %d has min id %d after max id %d", i, page.MinID, page.MaxID)
		}
		offset += int64(page.Length)
		numRows += page.NumRows
	}
	if numRows != m.Stored.NumRows {
		return errors.Errorf("stored pages hold %d rows, manifest says %d", numRows, m.Stored.NumRows)
	}
	return nil
}
