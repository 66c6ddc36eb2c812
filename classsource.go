// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mmap "github.com/edsrzf/mmap-go"
)

// ClassSource supplies raw class file bytes for binary names. A JAR file,
// a directory tree or an in-memory table are all class sources; the
// library only depends on this surface.
type ClassSource interface {
	// ClassNames enumerates the binary names the source can supply.
	ClassNames() ([]string, error)

	// Open returns a byte stream for the class with the given binary name,
	// or ErrClassNotFound.
	Open(binaryName string) (io.ReadCloser, error)
}

// DirClassSource serves class files from a directory tree. A binary name
// resolves by appending ".class" to the slash-separated name.
type DirClassSource struct {
	Root string
}

// ClassNames walks the tree and reports every .class file as a binary name.
func (s DirClassSource) ClassNames() ([]string, error) {
	var names []string
	err := filepath.Walk(s.Root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ".class")
		names = append(names, name)
		return nil
	})
	return names, err
}

// Open memory-maps the class file for the given binary name. The returned
// reader owns the mapping and releases it on Close.
func (s DirClassSource) Open(binaryName string) (io.ReadCloser, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(binaryName)+".class")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mappedReader{Reader: bytes.NewReader(data), data: data, f: f}, nil
}

type mappedReader struct {
	*bytes.Reader
	data mmap.MMap
	f    *os.File
}

func (r *mappedReader) Close() error {
	if err := r.data.Unmap(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// MemClassSource serves class files from an in-memory table, keyed by
// binary name. It backs tests and synthetic class paths.
type MemClassSource map[string][]byte

// ClassNames lists the table's keys.
func (s MemClassSource) ClassNames() ([]string, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names, nil
}

// Open returns a reader over the stored bytes.
func (s MemClassSource) Open(binaryName string) (io.ReadCloser, error) {
	data, ok := s[binaryName]
	if !ok {
		return nil, ErrClassNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
