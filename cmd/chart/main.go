// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Chart renders PNG history charts from a results database.
//
// Usage:
//
//	chart [-dsn file.db] [-driver name] [-start bound] [-end bound] [-stat name] [-o dir]
//
// One chart is written per benchmark, named after it, with one line
// per profile and scenario. Bounds are commit shas or YYYY-MM-DD
// dates; unset bounds span the recent history window.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"gonum.org/v1/plot/plotter"

	"github.com/chengr4/rustc-perf/chart"
	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/database"
	_ "github.com/chengr4/rustc-perf/database/sqlite3"
	"github.com/chengr4/rustc-perf/selector"
)

var (
	dsn    = flag.String("dsn", "results.db", "database `dsn`")
	driver = flag.String("driver", "sqlite3", "database/sql driver `name`")
	start  = flag.String("start", "", "left `bound` of the charted range")
	end    = flag.String("end", "", "right `bound` of the charted range")
	stat   = flag.String("stat", "instructions:u", "statistic to chart")
	outDir = flag.String("o", ".", "output `directory`")
)

type source struct {
	idx *database.Index
	db  *database.DB
}

func (s *source) Index() *database.Index { return s.idx }
func (s *source) DB() *database.DB       { return s.db }

func main() {
	log.SetPrefix("chart: ")
	log.SetFlags(0)
	flag.Parse()
	ctx := context.Background()

	db, err := database.OpenSQL(*driver, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	idx, err := database.LoadIndex(ctx, db)
	if err != nil {
		log.Fatalf("load index: %v", err)
	}

	commits := selector.RangeSubset(idx.Commits(), collector.ParseBound(*start), collector.ParseBound(*end))
	if len(commits) == 0 {
		log.Fatalf("no commits in range [%s, %s]", *start, *end)
	}
	artifacts := make([]database.ArtifactID, len(commits))
	labels := make([]string, len(commits))
	for i, c := range commits {
		artifacts[i] = database.CommitArtifact(c)
		labels[i] = c.Sha
		if len(labels[i]) > 10 {
			labels[i] = labels[i][:10]
		}
	}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.All[string]()).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagMetric, selector.One(*stat))
	series, err := selector.QueryScalar(ctx, &source{idx: idx, db: db}, artifacts, q)
	if err != nil {
		log.Fatalf("querying %s: %v", *stat, err)
	}

	// The series arrive sorted, so one pass groups them by benchmark.
	var order []string
	byBenchmark := make(map[string][]chart.Series)
	for _, sr := range series {
		points, ok := selector.Interpolate(sr.Series)
		if !ok {
			continue
		}
		benchmark, err := sr.Path.Benchmark()
		if err != nil {
			log.Fatal(err)
		}
		profile, err := sr.Path.Profile()
		if err != nil {
			log.Fatal(err)
		}
		scenario, err := sr.Path.Scenario()
		if err != nil {
			log.Fatal(err)
		}
		values := make(plotter.Values, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		name := string(benchmark)
		if _, ok := byBenchmark[name]; !ok {
			order = append(order, name)
		}
		byBenchmark[name] = append(byBenchmark[name], chart.Series{
			Label:  fmt.Sprintf("%s %s", profile, scenario),
			Values: values,
		})
	}
	if len(order) == 0 {
		log.Fatalf("nothing measured for %s in range [%s, %s]", *stat, *start, *end)
	}

	for _, name := range order {
		file := filepath.Join(*outDir, strings.ReplaceAll(name, "/", "-per-")+".png")
		f, err := os.Create(file)
		if err != nil {
			log.Fatal(err)
		}
		title := fmt.Sprintf("%s (%s)", name, *stat)
		if err := chart.Render(f, title, labels, byBenchmark[name]); err != nil {
			f.Close()
			log.Fatalf("rendering %s: %v", file, err)
		}
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", file)
	}
}
