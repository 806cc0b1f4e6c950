// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package selector_test

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/database/dbtest"
	"github.com/chengr4/rustc-perf/selector"
)

type source struct {
	idx *database.Index
	db  *database.DB
}

func (s *source) Index() *database.Index { return s.idx }
func (s *source) DB() *database.DB       { return s.db }

func commitOn(sha string, day int) database.Commit {
	return database.Commit{Sha: sha, Date: database.NewDate(time.Date(2021, 3, day, 12, 0, 0, 0, time.UTC))}
}

// newSource populates a database with two commits of process
// statistics and one self-profile, and returns a Source over it.
func newSource(t *testing.T) (*source, func()) {
	t.Helper()
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)

	c1 := database.CommitArtifact(commitOn("aaaa", 1))
	c2 := database.CommitArtifact(commitOn("bbbb", 2))

	records := []struct {
		s database.PstatSeries
		a database.ArtifactID
		v float64
	}{
		{database.PstatSeries{"syn", database.ProfileCheck, database.ScenarioFull, "instructions:u"}, c1, 100},
		{database.PstatSeries{"syn", database.ProfileCheck, database.ScenarioFull, "instructions:u"}, c2, 110},
		{database.PstatSeries{"syn", database.ProfileCheck, database.ScenarioFull, "cpu-clock"}, c1, 1500},
		{database.PstatSeries{"syn", database.ProfileCheck, database.ScenarioFull, "cpu-clock"}, c2, 1600},
		{database.PstatSeries{"regex", database.ProfileOpt, database.ScenarioFull, "instructions:u"}, c1, 200},
	}
	for _, r := range records {
		if err := db.RecordPstat(ctx, r.s, r.a, r.v); err != nil {
			cleanup()
			t.Fatalf("RecordPstat: %v", err)
		}
	}

	qs := database.QuerySeries{"syn", database.ProfileDebug, database.ScenarioIncrPatched("println"), "typeck"}
	datum := database.QueryDatum{
		SelfTime:            2 * time.Second,
		BlockedTime:         time.Millisecond,
		IncrementalLoadTime: 3 * time.Millisecond,
		CacheHits:           10,
		InvocationCount:     30,
	}
	if err := db.RecordSelfProfile(ctx, qs, c1, datum); err != nil {
		cleanup()
		t.Fatalf("RecordSelfProfile: %v", err)
	}

	idx, err := database.LoadIndex(ctx, db)
	if err != nil {
		cleanup()
		t.Fatalf("LoadIndex: %v", err)
	}
	return &source{idx: idx, db: db}, cleanup
}

func scalarQuery() selector.Query {
	return selector.Query{}.
		Set(selector.TagBenchmark, selector.All[string]()).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagMetric, selector.One("instructions:u"))
}

func TestQueryScalarPstats(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{
		database.CommitArtifact(commitOn("aaaa", 1)),
		database.CommitArtifact(commitOn("bbbb", 2)),
	}

	series, err := selector.QueryScalar(context.Background(), src, artifacts, scalarQuery())
	if err != nil {
		t.Fatalf("QueryScalar: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d series, want 2", len(series))
	}

	// series are ordered by benchmark
	b0, _ := series[0].Path.Benchmark()
	b1, _ := series[1].Path.Benchmark()
	if b0 != "regex" || b1 != "syn" {
		t.Fatalf("series order = [%s %s], want [regex syn]", b0, b1)
	}

	regex := series[0].Series
	if len(regex) != 2 {
		t.Fatalf("regex series has %d points, want one per artifact", len(regex))
	}
	if regex[0].ArtifactID.Name() != "aaaa" || regex[1].ArtifactID.Name() != "bbbb" {
		t.Errorf("points out of request order: %v", regex)
	}
	if regex[0].Value == nil || *regex[0].Value != 200 {
		t.Errorf("regex@aaaa = %v, want 200", regex[0].Value)
	}
	if regex[1].Value != nil {
		t.Errorf("regex@bbbb = %v, want nil (never measured)", *regex[1].Value)
	}

	syn := series[1].Series
	if syn[0].Value == nil || *syn[0].Value != 100 || syn[1].Value == nil || *syn[1].Value != 110 {
		t.Errorf("syn series = %v, want [100 110]", syn)
	}
}

func TestQueryScalarCPUClockInSeconds(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{database.CommitArtifact(commitOn("aaaa", 1))}

	q := scalarQuery().Set(selector.TagMetric, selector.One("cpu-clock"))
	series, err := selector.QueryScalar(context.Background(), src, artifacts, q)
	if err != nil {
		t.Fatalf("QueryScalar: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d series, want 1", len(series))
	}
	if v := series[0].Series[0].Value; v == nil || *v != 1.5 {
		t.Errorf("cpu-clock@aaaa = %v, want 1.5 seconds", v)
	}
}

func TestQueryScalarUnknownArtifact(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{
		database.CommitArtifact(commitOn("aaaa", 1)),
		database.TagArtifact("1.50.0"),
	}

	series, err := selector.QueryScalar(context.Background(), src, artifacts, scalarQuery())
	if err != nil {
		t.Fatalf("QueryScalar: %v", err)
	}
	for _, s := range series {
		if len(s.Series) != 2 {
			t.Fatalf("series %v has %d points, want 2", s.Path, len(s.Series))
		}
		if s.Series[1].Value != nil {
			t.Errorf("series %v has a value for an unknown artifact", s.Path)
		}
	}
}

func TestQueryScalarQueryTime(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{
		database.CommitArtifact(commitOn("aaaa", 1)),
		database.CommitArtifact(commitOn("bbbb", 2)),
	}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.All[string]()).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagQueryLabel, selector.One("typeck"))
	series, err := selector.QueryScalar(context.Background(), src, artifacts, q)
	if err != nil {
		t.Fatalf("QueryScalar: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d series, want 1", len(series))
	}
	label, err := series[0].Path.QueryLabel()
	if err != nil || label != "typeck" {
		t.Errorf("path query label = %v, %v", label, err)
	}
	points := series[0].Series
	if points[0].Value == nil || *points[0].Value != 2.0 {
		t.Errorf("typeck@aaaa = %v, want 2.0 seconds", points[0].Value)
	}
	if points[1].Value != nil {
		t.Errorf("typeck@bbbb = %v, want nil", *points[1].Value)
	}
}

func TestQueryScalarMetricAndLabelConflict(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{database.CommitArtifact(commitOn("aaaa", 1))}

	q := scalarQuery().Set(selector.TagQueryLabel, selector.One("typeck"))
	_, err := selector.QueryScalar(context.Background(), src, artifacts, q)
	if err == nil {
		t.Fatal("QueryScalar accepted both metric and query-label selectors")
	}
	if !strings.Contains(err.Error(), "; or ") {
		t.Errorf("err = %v, want both providers' complaints", err)
	}
}

func TestQuerySelfProfile(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{
		database.CommitArtifact(commitOn("aaaa", 1)),
		database.CommitArtifact(commitOn("bbbb", 2)),
	}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.One("syn")).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]())
	series, err := selector.QuerySelfProfile(context.Background(), src, artifacts, q)
	if err != nil {
		t.Fatalf("QuerySelfProfile: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d series, want 1", len(series))
	}

	got := series[0].Series[0].Value
	want := &selector.SelfProfileData{QueryData: []selector.QueryData{{
		Label:               "typeck",
		SelfTime:            uint64(2 * time.Second),
		NumberOfCacheMisses: 20,
		NumberOfCacheHits:   10,
		InvocationCount:     30,
		BlockedTime:         uint64(time.Millisecond),
		IncrementalLoadTime: uint64(3 * time.Millisecond),
	}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("self profile = %+v, want %+v", got, want)
	}
	if series[0].Series[1].Value != nil {
		t.Errorf("self profile @bbbb = %+v, want nil", series[0].Series[1].Value)
	}
}

func TestQuerySelfProfileRejectsMetric(t *testing.T) {
	src, cleanup := newSource(t)
	defer cleanup()
	artifacts := []database.ArtifactID{database.CommitArtifact(commitOn("aaaa", 1))}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.One("syn")).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagMetric, selector.One("instructions:u"))
	if _, err := selector.QuerySelfProfile(context.Background(), src, artifacts, q); err == nil {
		t.Error("QuerySelfProfile accepted a metric selector")
	}
}

func TestArtifactIDForBound(t *testing.T) {
	now := time.Now().UTC()
	commits := []database.Commit{
		{Sha: "aaaa", Date: database.NewDate(now.Add(-72 * time.Hour))},
		{Sha: "bbbb", Date: database.NewDate(now.Add(-48 * time.Hour))},
		{Sha: "cccc", Date: database.NewDate(now.Add(-24 * time.Hour))},
	}
	idx := database.NewIndex(commits, []string{"1.50.0"}, nil, nil, nil)

	if a, ok := selector.ArtifactIDForBound(idx, collector.CommitBound("bbbb"), true); !ok || a.Name() != "bbbb" {
		t.Errorf("commit bound resolved to %v, %v", a, ok)
	}
	if a, ok := selector.ArtifactIDForBound(idx, collector.Bound{}, false); !ok || a.Name() != "cccc" {
		t.Errorf("zero bound right resolution = %v, want newest commit", a)
	}
	if a, ok := selector.ArtifactIDForBound(idx, collector.CommitBound("1.50.0"), true); !ok || a.IsCommit() || a.Name() != "1.50.0" {
		t.Errorf("tag bound resolved to %v, %v", a, ok)
	}
	if _, ok := selector.ArtifactIDForBound(idx, collector.CommitBound("zzzz"), true); ok {
		t.Error("unknown bound resolved")
	}

	day := commits[1].Date.Format("2006-01-02")
	if a, ok := selector.ArtifactIDForBound(idx, collector.ParseBound(day), true); !ok || a.Name() != "bbbb" {
		t.Errorf("date bound left resolution = %v, want first commit on the date", a)
	}
}

func TestRangeSubset(t *testing.T) {
	now := time.Now().UTC()
	commits := []database.Commit{
		{Sha: "aaaa", Date: database.NewDate(now.Add(-72 * time.Hour))},
		{Sha: "bbbb", Date: database.NewDate(now.Add(-48 * time.Hour))},
		{Sha: "cccc", Date: database.NewDate(now.Add(-24 * time.Hour))},
	}

	got := selector.RangeSubset(commits, collector.CommitBound("bbbb"), collector.Bound{})
	if len(got) != 2 || got[0].Sha != "bbbb" || got[1].Sha != "cccc" {
		t.Errorf("RangeSubset(bbbb..) = %v, want [bbbb cccc]", got)
	}

	got = selector.RangeSubset(commits, collector.CommitBound("aaaa"), collector.CommitBound("bbbb"))
	if len(got) != 2 || got[0].Sha != "aaaa" || got[1].Sha != "bbbb" {
		t.Errorf("RangeSubset(aaaa..bbbb) = %v, want [aaaa bbbb]", got)
	}

	if got := selector.RangeSubset(commits, collector.CommitBound("cccc"), collector.CommitBound("aaaa")); len(got) != 0 {
		t.Errorf("crossed range = %v, want empty", got)
	}

	if got := selector.RangeSubset(commits, collector.CommitBound("zzzz"), collector.Bound{}); len(got) != 0 {
		t.Errorf("unmatched range = %v, want empty", got)
	}
}
