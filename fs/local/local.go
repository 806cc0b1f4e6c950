// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package local implements the fs.FS interface using local files.
// Metadata is not stored separately; the file should contain the
// metadata.
package local

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/fs"
)

type impl struct {
	root string
}

// NewFS constructs an FS that reads and writes the provided directory.
func NewFS(root string) fs.FS {
	return &impl{root: root}
}

func (fs *impl) NewWriter(_ context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	if err := os.MkdirAll(filepath.Join(fs.root, filepath.Dir(name)), 0777); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(fs.root, name))
	if err != nil {
		return nil, err
	}
	return &wrapper{f}, nil
}

func (fs *impl) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(fs.root, name))
}

func (fs *impl) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(fs.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(fs.root, path)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type wrapper struct {
	*os.File
}

// CloseWithError closes the file and attempts to unlink it.
func (w *wrapper) CloseWithError(error) error {
	w.Close()
	return os.Remove(w.Name())
}
