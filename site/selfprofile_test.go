// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chengr4/rustc-perf/selector"
)

func TestSelfProfile(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	var resp selfProfileResponse
	postJSON(t, app.selfProfile, `{"commit": "bbbb", "benchmark": "syn", "profile": "check", "scenario": "full"}`, &resp)

	want := []selector.QueryData{
		{Label: "parse", SelfTime: 2000000, NumberOfCacheMisses: 3, NumberOfCacheHits: 1, InvocationCount: 4, IncrementalLoadTime: 1000000},
		{Label: "typeck", SelfTime: 5000000, NumberOfCacheMisses: 20, NumberOfCacheHits: 10, InvocationCount: 30, BlockedTime: 1000000, IncrementalLoadTime: 2000000},
	}
	if !reflect.DeepEqual(resp.Queries, want) {
		t.Errorf("queries = %+v, want %+v", resp.Queries, want)
	}

	totals := selector.QueryData{
		Label:               "Totals",
		SelfTime:            7000000,
		NumberOfCacheMisses: 23,
		NumberOfCacheHits:   11,
		InvocationCount:     34,
		BlockedTime:         1000000,
		IncrementalLoadTime: 3000000,
	}
	if resp.Totals != totals {
		t.Errorf("totals = %+v, want %+v", resp.Totals, totals)
	}
}

func TestSelfProfileMissing(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	for _, tc := range []struct {
		name, body, want string
	}{
		{"unknown benchmark", `{"commit": "bbbb", "benchmark": "nope", "profile": "check", "scenario": "full"}`, "no self-profile"},
		{"unprofiled commit", `{"commit": "aaaa", "benchmark": "syn", "profile": "check", "scenario": "full"}`, "no self-profile"},
		{"unknown commit", `{"commit": "ffff", "benchmark": "syn", "profile": "check", "scenario": "full"}`, "could not find artifact"},
		{"missing commit", `{"benchmark": "syn", "profile": "check", "scenario": "full"}`, "missing commit"},
	} {
		status, body := postError(t, app.selfProfile, tc.body)
		if status != 500 || !strings.Contains(body, tc.want) {
			t.Errorf("%s: got %d %q, want %q", tc.name, status, body, tc.want)
		}
	}
}
