// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Site runs the performance site HTTP server.
//
// Usage:
//
//	site [-addr address] [-dsn file.db] [-driver name] [-archive dir] [-archive-bucket bucket]
//
// The index snapshot is reloaded every -refresh interval, so results
// recorded while the server runs become visible without a restart.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/chengr4/rustc-perf/database"
	_ "github.com/chengr4/rustc-perf/database/sqlite3"
	"github.com/chengr4/rustc-perf/fs/gcs"
	"github.com/chengr4/rustc-perf/fs/local"
	"github.com/chengr4/rustc-perf/site"
)

var (
	addr          = flag.String("addr", ":2346", "serve HTTP on `address`")
	dsn           = flag.String("dsn", "results.db", "database `dsn`")
	driver        = flag.String("driver", "sqlite3", "database/sql driver `name`")
	archiveDir    = flag.String("archive", "", "serve raw self-profile archives from `directory`")
	archiveBucket = flag.String("archive-bucket", "", "serve raw self-profile archives from GCS `bucket`")
	refresh       = flag.Duration("refresh", 5*time.Minute, "index refresh `interval`")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	db, err := database.OpenSQL(*driver, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	ctxt, err := site.NewCtxt(ctx, db)
	if err != nil {
		log.Fatalf("load index: %v", err)
	}
	switch {
	case *archiveDir != "":
		ctxt.Archive = local.NewFS(*archiveDir)
	case *archiveBucket != "":
		fsys, err := gcs.NewPublicFS(ctx, *archiveBucket)
		if err != nil {
			log.Fatalf("open archive bucket: %v", err)
		}
		ctxt.Archive = fsys
	}

	go func() {
		for range time.Tick(*refresh) {
			if err := ctxt.RefreshIndex(ctx); err != nil {
				log.Printf("refreshing index: %v", err)
			}
		}
	}()

	app := &site.App{Ctxt: ctxt}
	app.RegisterOnMux(http.DefaultServeMux)

	log.Printf("Listening on %s", *addr)

	log.Fatal(http.ListenAndServe(*addr, nil))
}
