// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"reflect"
	"strings"
	"testing"
)

func TestGraphs(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	var resp graphsResponse
	postJSON(t, app.graphs, `{"start": "aaaa", "end": "cccc"}`, &resp)

	if want := []string{"aaaa", "bbbb", "cccc"}; !reflect.DeepEqual(resp.Commits, want) {
		t.Fatalf("commits = %v, want %v", resp.Commits, want)
	}

	for _, tc := range []struct {
		benchmark, profile, scenario string
		want                         graphSeries
	}{
		{"syn", "check", "full", graphSeries{Points: []float64{100, 110, 110}}},
		{"regex", "opt", "full", graphSeries{Points: []float64{200, 210, 220}}},
		// The missing middle point takes the preceding value.
		{"serde", "opt", "full", graphSeries{Points: []float64{300, 300, 330}, Interpolated: []int{1}}},
		{"html5ever", "doc", "full", graphSeries{Points: []float64{100, 500, 500}}},
	} {
		got, ok := resp.Benchmarks[tc.benchmark][tc.profile][tc.scenario]
		if !ok {
			t.Errorf("no line for %s-%s %s", tc.benchmark, tc.profile, tc.scenario)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s-%s %s = %+v, want %+v", tc.benchmark, tc.profile, tc.scenario, got, tc.want)
		}
	}
}

func TestGraphsPercentFromFirst(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	var resp graphsResponse
	postJSON(t, app.graphs, `{"start": "aaaa", "end": "cccc", "kind": "percentfromfirst"}`, &resp)

	for _, tc := range []struct {
		benchmark, profile string
		want               graphSeries
	}{
		{"syn", "check", graphSeries{Points: []float64{0, 10, 10}}},
		{"serde", "opt", graphSeries{Points: []float64{0, 0, 10}, Interpolated: []int{1}}},
	} {
		got := resp.Benchmarks[tc.benchmark][tc.profile]["full"]
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s-%s = %+v, want %+v", tc.benchmark, tc.profile, got, tc.want)
		}
	}
}

func TestGraphsSubrange(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	var resp graphsResponse
	postJSON(t, app.graphs, `{"start": "bbbb", "end": "cccc"}`, &resp)

	if want := []string{"bbbb", "cccc"}; !reflect.DeepEqual(resp.Commits, want) {
		t.Fatalf("commits = %v, want %v", resp.Commits, want)
	}
	// serde's first point in range is unmeasured; it takes the
	// first observation.
	want := graphSeries{Points: []float64{330, 330}, Interpolated: []int{0}}
	if got := resp.Benchmarks["serde"]["opt"]["full"]; !reflect.DeepEqual(got, want) {
		t.Errorf("serde-opt = %+v, want %+v", got, want)
	}
}

func TestGraphsUnknownKind(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	status, body := postError(t, app.graphs, `{"start": "aaaa", "end": "cccc", "kind": "nope"}`)
	if status != 500 || !strings.Contains(body, `unknown graph kind "nope"`) {
		t.Errorf("got %d %q, want an unknown kind error", status, body)
	}
}

func TestGraphsEmptyRange(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	status, body := postError(t, app.graphs, `{"start": "ffff", "end": "ffff"}`)
	if status != 500 || !strings.Contains(body, "no commits in range") {
		t.Errorf("got %d %q, want an empty range error", status, body)
	}
}
