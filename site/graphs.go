// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"fmt"
	"net/http"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/selector"
)

// graphs is the handler for the /perf/graphs endpoint. It expands the
// requested commit range into one line per measured benchmark
// configuration, with gaps filled in by interpolation.
func (a *App) graphs(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	var req graphsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := a.graphsQuery(ctx, req)
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, resp)
}

func (a *App) graphsQuery(ctx context.Context, req graphsRequest) (*graphsResponse, error) {
	stat := database.Metric(req.Stat)
	if stat == "" {
		stat = defaultStat
	}
	percent := false
	switch req.Kind {
	case "", "raw":
	case "percentfromfirst":
		percent = true
	default:
		return nil, fmt.Errorf("unknown graph kind %q", req.Kind)
	}

	idx := a.Ctxt.Index()
	commits := selector.RangeSubset(idx.Commits(), req.Start, req.End)
	if len(commits) == 0 {
		return nil, fmt.Errorf("no commits in range [%s, %s]", req.Start, req.End)
	}
	artifacts := make([]database.ArtifactID, len(commits))
	for i, c := range commits {
		artifacts[i] = database.CommitArtifact(c)
	}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.All[string]()).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagMetric, selector.One(string(stat)))
	series, err := selector.QueryScalar(ctx, a.Ctxt, artifacts, q)
	if err != nil {
		return nil, err
	}

	resp := &graphsResponse{Benchmarks: make(map[string]map[string]map[string]graphSeries)}
	for _, c := range commits {
		resp.Commits = append(resp.Commits, c.Sha)
	}
	for _, sr := range series {
		points, ok := selector.Interpolate(sr.Series)
		if !ok {
			// Nothing measured in the range.
			continue
		}
		benchmark, err := sr.Path.Benchmark()
		if err != nil {
			return nil, err
		}
		profile, err := sr.Path.Profile()
		if err != nil {
			return nil, err
		}
		scenario, err := sr.Path.Scenario()
		if err != nil {
			return nil, err
		}

		first := points[0].Value
		if percent && first == 0 {
			// A percent change against zero is undefined.
			continue
		}
		gs := graphSeries{Points: make([]float64, len(points))}
		for i, p := range points {
			v := p.Value
			if percent {
				v = (v - first) / first * 100
			}
			gs.Points[i] = v
			if p.Interpolated {
				gs.Interpolated = append(gs.Interpolated, i)
			}
		}

		byProfile := resp.Benchmarks[string(benchmark)]
		if byProfile == nil {
			byProfile = make(map[string]map[string]graphSeries)
			resp.Benchmarks[string(benchmark)] = byProfile
		}
		byScenario := byProfile[profile.String()]
		if byScenario == nil {
			byScenario = make(map[string]graphSeries)
			byProfile[profile.String()] = byScenario
		}
		byScenario[scenario.String()] = gs
	}
	return resp, nil
}
