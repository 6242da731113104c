// Package mmap maps files into memory read-only, falling back to reading
// the whole file on platforms without mmap.
package mmap

import (
	"fmt"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << iota

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess

	// Prefault is a hint requesting the entire file to be loaded in memory
	// for fastest access. Maps to MAP_POPULATE on Linux.
	Prefault
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// File is a read-only view of the contents of a file. The view stays valid
// until Close, even though the file itself is closed by Open.
type File struct {
	data   []byte
	mapped bool
}

func Open(path string, opt Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &File{data: []byte{}}, nil
	}
	if size > MaxSize {
		return nil, fmt.Errorf("mmap: %s: size %d exceeds %d", path, size, int64(MaxSize))
	}

	data, mapped, err := mapFile(f, int(size), opt)
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	return &File{data: data, mapped: mapped}, nil
}

// Bytes returns the file contents. The slice must not be modified or used
// after Close.
func (f *File) Bytes() []byte {
	return f.data
}

func (f *File) Len() int {
	return len(f.data)
}

// Close releases the mapping. It is safe to call more than once.
func (f *File) Close() error {
	data, mapped := f.data, f.mapped
	f.data, f.mapped = nil, false
	if !mapped {
		return nil
	}
	return munmap(data)
}
