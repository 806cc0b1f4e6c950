// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"fmt"
	"net/http"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/selector"
)

// selfProfile is the handler for the /perf/self-profile endpoint. It
// returns the processed per-query table for one benchmark run, with
// a totals row.
func (a *App) selfProfile(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	var req selfProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := a.selfProfileQuery(ctx, req)
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, resp)
}

func (a *App) selfProfileQuery(ctx context.Context, req selfProfileRequest) (*selfProfileResponse, error) {
	if req.Commit == "" {
		return nil, fmt.Errorf("missing commit")
	}
	idx := a.Ctxt.Index()
	aid, ok := selector.ArtifactIDForBound(idx, collector.ParseBound(req.Commit), true)
	if !ok {
		return nil, fmt.Errorf("could not find artifact %q", req.Commit)
	}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.One(req.Benchmark)).
		Set(selector.TagProfile, selector.One(req.Profile)).
		Set(selector.TagScenario, selector.One(req.Scenario))
	series, err := selector.QuerySelfProfile(ctx, a.Ctxt, []database.ArtifactID{aid}, q)
	if err != nil {
		return nil, err
	}
	var data *selector.SelfProfileData
	for _, sr := range series {
		if v := sr.Series[0].Value; v != nil {
			data = v
		}
	}
	if data == nil {
		return nil, fmt.Errorf("no self-profile for %s %s %s %s", aid, req.Benchmark, req.Profile, req.Scenario)
	}

	resp := &selfProfileResponse{Queries: data.QueryData}
	totals := &resp.Totals
	totals.Label = "Totals"
	for _, qd := range data.QueryData {
		totals.SelfTime += qd.SelfTime
		totals.NumberOfCacheMisses += qd.NumberOfCacheMisses
		totals.NumberOfCacheHits += qd.NumberOfCacheHits
		totals.InvocationCount += qd.InvocationCount
		totals.BlockedTime += qd.BlockedTime
		totals.IncrementalLoadTime += qd.IncrementalLoadTime
	}
	return resp, nil
}
