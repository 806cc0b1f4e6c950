// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestDashboard(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(app.dashboard))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("get /perf/dashboard: %v", resp.Status)
	}
	var got dashboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if got.Stat != "instructions:u" {
		t.Errorf("stat = %q, want instructions:u", got.Stat)
	}
	if want := []string{"check", "doc", "opt"}; !reflect.DeepEqual(got.Profiles, want) {
		t.Errorf("profiles = %v, want %v", got.Profiles, want)
	}

	// The release artifact first, then the newest master commit.
	// cccc's opt mean averages regex (220) and serde (330).
	want := []dashboardRow{
		{Artifact: "1.51.0", Means: map[string]float64{"check": 90, "opt": 190}},
		{Artifact: "cccc", Means: map[string]float64{"check": 110, "doc": 500, "opt": 275}},
	}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("rows = %+v, want %+v", got.Rows, want)
	}
}

func TestDashboardHTML(t *testing.T) {
	app, cleanup := testApp(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(app.dashboardHTML))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("get /dashboard.html: %v", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	body := string(b)

	for _, want := range []string{
		"<tr><th>artifact<th>check<th>doc<th>opt",
		"<tr><td>1.51.0<td>90.0<td><td>190.0",
		"<tr><td>cccc<td>110.0<td>500.0<td>275.0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q:\n%s", want, body)
		}
	}
}
