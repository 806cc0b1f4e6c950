// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchlib turns a program into a benchmark the collector can
// run. A benchmark binary registers one or more named routines in a
// Suite and calls Main; the collector invokes the binary's
// "benchmark" subcommand and reads per-iteration measurements from
// standard output as JSON.
package benchlib

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

// defaultIterations is how many times each routine runs when
// --iterations is not given.
const defaultIterations = 5

// A Result is the measurement of one iteration of one routine.
type Result struct {
	Name      string `json:"name"`
	Iteration int    `json:"iteration"`
	WallNs    int64  `json:"wall_ns"`
}

type benchmark struct {
	name string
	f    func()
}

// A Suite is a set of registered benchmark routines.
type Suite struct {
	benchmarks []benchmark
}

// Register adds a named routine to the suite. Registration order is
// execution order.
func (s *Suite) Register(name string, f func()) {
	s.benchmarks = append(s.benchmarks, benchmark{name, f})
}

// Run executes every registered routine the given number of times and
// returns one Result per iteration, in execution order.
func (s *Suite) Run(iterations int) []Result {
	var results []Result
	for _, b := range s.benchmarks {
		for i := 1; i <= iterations; i++ {
			start := time.Now()
			b.f()
			results = append(results, Result{
				Name:      b.name,
				Iteration: i,
				WallNs:    time.Since(start).Nanoseconds(),
			})
		}
	}
	return results
}

// Main is the entry point for a benchmark binary. It understands one
// subcommand:
//
//	benchmark [--iterations N]
//
// which runs the suite and writes the results to standard output as
// JSON.
func (s *Suite) Main() {
	if len(os.Args) < 2 || os.Args[1] != "benchmark" {
		fmt.Fprintf(os.Stderr, "usage: %s benchmark [--iterations N]\n", os.Args[0])
		os.Exit(2)
	}
	fs := flag.NewFlagSet("benchmark", flag.ExitOnError)
	iterations := fs.Int("iterations", defaultIterations, "number of iterations of each routine")
	fs.Parse(os.Args[2:])
	if *iterations < 1 {
		log.Fatalf("iterations must be positive, got %d", *iterations)
	}
	results := s.Run(*iterations)
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(results); err != nil {
		log.Fatalf("writing results: %v", err)
	}
}
