// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

// Request and response bodies for the endpoints. Every endpoint
// takes a JSON POST body and answers with JSON, except the triage
// endpoint, which answers with the markdown report, and the download
// endpoint, which streams an archive.

import (
	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/selector"
)

// defaultStat is used when a request leaves the statistic unset.
const defaultStat = "instructions:u"

type compareRequest struct {
	Start collector.Bound `json:"start"`
	End   collector.Bound `json:"end"`
	Stat  string          `json:"stat"`
}

type triageRequest struct {
	Start collector.Bound `json:"start"`
	End   collector.Bound `json:"end"`
}

type graphsRequest struct {
	Start collector.Bound `json:"start"`
	End   collector.Bound `json:"end"`
	Stat  string          `json:"stat"`
	// Kind selects the point transform: "raw" values, or
	// "percentfromfirst", every point as a percent change against
	// the first point of its series.
	Kind string `json:"kind"`
}

// A graphSeries is one line of a graph: one value per commit of the
// requested range, plus the indexes of the points that were filled
// in by interpolation rather than measured.
type graphSeries struct {
	Points       []float64 `json:"points"`
	Interpolated []int     `json:"interpolated,omitempty"`
}

type graphsResponse struct {
	Commits []string `json:"commits"`
	// Benchmarks maps benchmark, profile and scenario to the line
	// for that configuration.
	Benchmarks map[string]map[string]map[string]graphSeries `json:"benchmarks"`
}

type selfProfileRequest struct {
	Commit    string `json:"commit"`
	Benchmark string `json:"benchmark"`
	Profile   string `json:"profile"`
	Scenario  string `json:"scenario"`
}

type selfProfileResponse struct {
	Totals  selector.QueryData   `json:"totals"`
	Queries []selector.QueryData `json:"query_data"`
}

type dashboardRow struct {
	Artifact string `json:"artifact"`
	// Means maps profile to the mean of the statistic across every
	// benchmark measured for the artifact. Profiles the artifact
	// was never measured under are absent.
	Means map[string]float64 `json:"means"`
}

type dashboardResponse struct {
	Stat     string         `json:"stat"`
	Profiles []string       `json:"profiles"`
	Rows     []dashboardRow `json:"rows"`
}
