// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fs provides a backend-agnostic filesystem layer for the raw
// self-profile archives collected alongside the measurements.
package fs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/context"
)

// An FS stores raw archive files.
type FS interface {
	// NewWriter returns a Writer for a given file name.
	// When the Writer is closed, the file will be stored with the
	// given metadata and the data written to the writer.
	NewWriter(ctx context.Context, name string, metadata map[string]string) (Writer, error)
	// Open opens the named file for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns the names of the stored files starting with
	// prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// A Writer is an io.Writer that can also be closed with an error.
type Writer interface {
	io.WriteCloser
	// CloseWithError cancels the writing of the file, removing
	// any partially written data.
	CloseWithError(error) error
}

// MemFS is an in-memory filesystem implementing the FS interface.
type MemFS struct {
	mu      sync.Mutex
	content map[string]*memFile
}

// NewMemFS constructs a new, empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{
		content: make(map[string]*memFile),
	}
}

// NewWriter returns a Writer for a given file name. As a side effect,
// it associates the given metadata with the file.
func (fs *MemFS) NewWriter(_ context.Context, name string, metadata map[string]string) (Writer, error) {
	meta := make(map[string]string)
	for k, v := range metadata {
		meta[k] = v
	}
	return &memWriter{fs: fs, name: name, metadata: meta}, nil
}

// Open opens the named file for reading.
func (fs *MemFS) Open(_ context.Context, name string) (io.ReadCloser, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.content[name]
	if !ok {
		return nil, fmt.Errorf("file %q does not exist", name)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// List returns the names of the stored files starting with prefix,
// sorted.
func (fs *MemFS) List(_ context.Context, prefix string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var names []string
	for name := range fs.content {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Files returns the names of the files written to fs.
func (fs *MemFS) Files() []string {
	names, _ := fs.List(context.Background(), "")
	return names
}

// Metadata returns the metadata the named file was stored with.
func (fs *MemFS) Metadata(name string) map[string]string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.content[name]; ok {
		return f.metadata
	}
	return nil
}

type memFile struct {
	data     []byte
	metadata map[string]string
}

type memWriter struct {
	fs       *MemFS
	name     string
	metadata map[string]string
	buf      bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Close stores the written data under the writer's name.
func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.content[w.name] = &memFile{data: w.buf.Bytes(), metadata: w.metadata}
	return nil
}

// CloseWithError abandons the written data.
func (w *memWriter) CloseWithError(error) error {
	return nil
}
