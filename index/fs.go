package index

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dchest/safefile"
)

// FileReader is a read-only view of one artifact file. ReadAt is the
// primary access path at query time, sequential reads are only used
// for small whole-file artifacts such as the manifest.
type FileReader interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Size() (int64, error)
}

// FileWriter writes one artifact file. Nothing is visible to readers
// until Commit succeeds, a writer that is closed without a commit
// leaves no trace. Commit atomically replaces an existing file of the
// same name, the manifest relies on this when an index is rebuilt.
type FileWriter interface {
	io.Writer
	io.Closer
	Commit() error
}

// Dir abstracts the directory holding the index artifacts, so that
// tests can run against an in-memory implementation.
type Dir interface {
	Path() string
	OpenFile(name string) (FileReader, error)
	CreateFile(name string) (FileWriter, error)
	RemoveFile(name string) error
	ListFiles() ([]string, error)
}

var ErrNotDirectory = errors.New("not a directory")

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// OpenDir opens a directory on the filesystem, optionally also creating it
// if it does not exist.
func OpenDir(path string, create bool) (Dir, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if stat, err := os.Stat(path); err != nil {
		if create && os.IsNotExist(err) {
			err = os.MkdirAll(path, 0750)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	} else if !stat.IsDir() {
		return nil, ErrNotDirectory
	}

	return &fsDir{path: path}, nil
}

type fsDir struct {
	path string
}

func (d *fsDir) Path() string {
	return d.path
}

func (d *fsDir) OpenFile(name string) (FileReader, error) {
	f, err := os.Open(filepath.Join(d.path, name))
	if err != nil {
		return nil, err
	}
	return &fsFileReader{File: f}, nil
}

func (d *fsDir) CreateFile(name string) (FileWriter, error) {
	return safefile.Create(filepath.Join(d.path, name), 0644)
}

func (d *fsDir) RemoveFile(name string) error {
	err := os.Remove(filepath.Join(d.path, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *fsDir) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

type fsFileReader struct {
	*os.File
}

func (f *fsFileReader) Size() (int64, error) {
	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

// TempDir is a Dir backed by a throwaway filesystem directory.
type TempDir struct {
	fsDir
}

func NewTempDir() (*TempDir, error) {
	path, err := os.MkdirTemp("", "anubistats")
	if err != nil {
		return nil, err
	}
	log.Printf("created new temp directory at %v", path)
	return &TempDir{fsDir: fsDir{path: path}}, nil
}

func (d *TempDir) Close() {
	os.RemoveAll(d.Path())
}

type memDir struct {
	entries map[string][]byte
}

// NewMemDir creates a directory that only lives in memory.
func NewMemDir() Dir {
	return &memDir{
		entries: make(map[string][]byte),
	}
}

func (d *memDir) Path() string {
	return ""
}

func (d *memDir) OpenFile(name string) (FileReader, error) {
	entry, ok := d.entries[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memFileReader{Reader: bytes.NewReader(entry)}, nil
}

func (d *memDir) CreateFile(name string) (FileWriter, error) {
	return &memFileWriter{dir: d, name: name}, nil
}

func (d *memDir) RemoveFile(name string) error {
	delete(d.entries, name)
	return nil
}

func (d *memDir) ListFiles() ([]string, error) {
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	return names, nil
}

type memFileReader struct {
	*bytes.Reader
}

func (f *memFileReader) Size() (int64, error) {
	return f.Reader.Size(), nil
}

func (f *memFileReader) Close() error {
	return nil
}

type memFileWriter struct {
	bytes.Buffer
	dir  *memDir
	name string
}

func (f *memFileWriter) Commit() error {
	f.dir.entries[f.name] = append([]byte(nil), f.Bytes()...)
	return nil
}

func (f *memFileWriter) Close() error {
	return nil
}
