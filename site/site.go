// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package site implements the performance site server. Combine a
// Ctxt with an App and call RegisterOnMux to get an HTTP server
// serving the compare, triage, graph, self-profile and dashboard
// endpoints.
package site

import (
	"sync/atomic"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/fs"
	"github.com/chengr4/rustc-perf/github"
)

// A Ctxt carries what request handling needs: the database, the
// current index snapshot, and the external services the handlers
// consult. It implements selector.Source over the snapshot, so one
// request sees one consistent index even while a refresh publishes a
// new one.
type Ctxt struct {
	db  *database.DB
	idx atomic.Pointer[database.Index]

	// Commits lists the master commit chain, oldest first. Tests
	// inject a fixed chain here.
	Commits func(ctx context.Context) ([]collector.MasterCommit, error)

	// GitHub resolves pull request titles for report headings.
	GitHub *github.Client

	// Archive holds the raw self-profile archives served by the
	// download endpoint. A nil Archive disables downloads.
	Archive fs.FS
}

// NewCtxt returns a Ctxt over db with an initial index snapshot
// loaded. Commits defaults to fetching the live master chain.
func NewCtxt(ctx context.Context, db *database.DB) (*Ctxt, error) {
	c := &Ctxt{
		db:      db,
		Commits: collector.MasterCommits,
		GitHub:  github.NewClient(ctx),
	}
	if err := c.RefreshIndex(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// DB returns the database measurements are read from.
func (c *Ctxt) DB() *database.DB {
	return c.db
}

// Index returns the current index snapshot. Handlers call Index once
// and use the snapshot for the whole request; calling it again may
// observe a refresh.
func (c *Ctxt) Index() *database.Index {
	return c.idx.Load()
}

// RefreshIndex loads a fresh index snapshot and publishes it.
// Requests in flight keep the snapshot they started with.
func (c *Ctxt) RefreshIndex(ctx context.Context) error {
	idx, err := database.LoadIndex(ctx, c.db)
	if err != nil {
		return err
	}
	c.idx.Store(idx)
	return nil
}
