// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/database/dbtest"
)

func mustCommit(sha string, day int) database.Commit {
	return database.Commit{Sha: sha, Date: database.NewDate(time.Date(2021, 3, day, 12, 0, 0, 0, time.UTC))}
}

func TestPstatRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	c1 := database.CommitArtifact(mustCommit("aaaa", 1))
	c2 := database.CommitArtifact(mustCommit("bbbb", 2))
	s1 := database.PstatSeries{"syn", database.ProfileCheck, database.ScenarioFull, "instructions:u"}
	s2 := database.PstatSeries{"syn", database.ProfileCheck, database.ScenarioIncrPatched("println"), "instructions:u"}

	for _, r := range []struct {
		s database.PstatSeries
		a database.ArtifactID
		v float64
	}{
		{s1, c1, 100},
		{s1, c2, 110},
		{s2, c1, 50},
	} {
		if err := db.RecordPstat(ctx, r.s, r.a, r.v); err != nil {
			t.Fatalf("RecordPstat: %v", err)
		}
	}

	idx, err := database.LoadIndex(ctx, db)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	commits := idx.Commits()
	if len(commits) != 2 || commits[0].Sha != "aaaa" || commits[1].Sha != "bbbb" {
		t.Fatalf("commits = %v, want [aaaa bbbb]", commits)
	}

	sid1, ok := idx.PstatSeriesRow(s1)
	if !ok {
		t.Fatalf("series %v not in index", s1)
	}
	sid2, ok := idx.PstatSeriesRow(s2)
	if !ok {
		t.Fatalf("series %v not in index", s2)
	}
	aid1, ok := idx.ArtifactRow(c1)
	if !ok {
		t.Fatalf("artifact %v not in index", c1)
	}
	aid2, ok := idx.ArtifactRow(c2)
	if !ok {
		t.Fatalf("artifact %v not in index", c2)
	}

	got, err := db.Conn().GetPstats(ctx, []int32{sid1, sid2}, []int32{aid1, aid2, 0})
	if err != nil {
		t.Fatalf("GetPstats: %v", err)
	}
	want := [][]*float64{
		{f(100), f(110), nil},
		{f(50), nil, nil},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d series, want %d", len(got), len(want))
	}
	for i := range want {
		for j := range want[i] {
			switch {
			case got[i][j] == nil && want[i][j] == nil:
			case got[i][j] == nil || want[i][j] == nil || *got[i][j] != *want[i][j]:
				t.Errorf("pstat[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func f(v float64) *float64 {
	return &v
}

func TestSelfProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	c1 := database.CommitArtifact(mustCommit("aaaa", 1))
	series := database.QuerySeries{"syn", database.ProfileDebug, database.ScenarioFull, "typeck"}
	datum := database.QueryDatum{
		SelfTime:            2 * time.Second,
		BlockedTime:         time.Millisecond,
		IncrementalLoadTime: 3 * time.Millisecond,
		CacheHits:           10,
		InvocationCount:     30,
	}
	if err := db.RecordSelfProfile(ctx, series, c1, datum); err != nil {
		t.Fatalf("RecordSelfProfile: %v", err)
	}

	idx, err := database.LoadIndex(ctx, db)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	aid, ok := idx.ArtifactRow(c1)
	if !ok {
		t.Fatalf("artifact %v not in index", c1)
	}

	profile, err := db.Conn().GetSelfProfile(ctx, aid, "syn", database.ProfileDebug, database.ScenarioFull)
	if err != nil {
		t.Fatalf("GetSelfProfile: %v", err)
	}
	if got, ok := profile["typeck"]; !ok || got != datum {
		t.Errorf("GetSelfProfile[typeck] = %+v, want %+v", got, datum)
	}

	sid, ok := idx.QuerySeriesRow(series)
	if !ok {
		t.Fatalf("series %v not in index", series)
	}
	single, err := db.Conn().GetSelfProfileQuery(ctx, sid, aid)
	if err != nil {
		t.Fatalf("GetSelfProfileQuery: %v", err)
	}
	if single == nil || *single != datum {
		t.Errorf("GetSelfProfileQuery = %+v, want %+v", single, datum)
	}

	missing, err := db.Conn().GetSelfProfileQuery(ctx, sid, 9999)
	if err != nil {
		t.Fatalf("GetSelfProfileQuery(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("GetSelfProfileQuery(missing) = %+v, want nil", missing)
	}
}

func TestBootstrapRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	c1 := database.CommitArtifact(mustCommit("aaaa", 1))
	c2 := database.CommitArtifact(mustCommit("bbbb", 2))
	if err := db.RecordBootstrap(ctx, c1, "std", 90*time.Second); err != nil {
		t.Fatalf("RecordBootstrap: %v", err)
	}
	if err := db.RecordBootstrap(ctx, c2, "std", 92*time.Second); err != nil {
		t.Fatalf("RecordBootstrap: %v", err)
	}

	idx, err := database.LoadIndex(ctx, db)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	aid1, _ := idx.ArtifactRow(c1)
	aid2, _ := idx.ArtifactRow(c2)

	got, err := db.Conn().GetBootstrap(ctx, []int32{aid2, aid1})
	if err != nil {
		t.Fatalf("GetBootstrap: %v", err)
	}
	durs := got["std"]
	if len(durs) != 2 || durs[0] == nil || durs[1] == nil {
		t.Fatalf("GetBootstrap[std] = %v, want two values", durs)
	}
	if *durs[0] != 92*time.Second || *durs[1] != 90*time.Second {
		t.Errorf("GetBootstrap[std] = [%v %v], want [92s 90s]", *durs[0], *durs[1])
	}
}

func TestPullRequestBuild(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	if err := db.RecordPullRequestBuild(ctx, "bbbb", 1234, "aaaa"); err != nil {
		t.Fatalf("RecordPullRequestBuild: %v", err)
	}

	conn := db.Conn()
	pr, err := conn.PrOf(ctx, "bbbb")
	if err != nil {
		t.Fatalf("PrOf: %v", err)
	}
	if pr != 1234 {
		t.Errorf("PrOf(bbbb) = %d, want 1234", pr)
	}
	parent, err := conn.ParentOf(ctx, "bbbb")
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if parent != "aaaa" {
		t.Errorf("ParentOf(bbbb) = %q, want aaaa", parent)
	}

	pr, err = conn.PrOf(ctx, "cccc")
	if err != nil {
		t.Fatalf("PrOf(missing): %v", err)
	}
	if pr != 0 {
		t.Errorf("PrOf(cccc) = %d, want 0", pr)
	}
	parent, err = conn.ParentOf(ctx, "cccc")
	if err != nil {
		t.Fatalf("ParentOf(missing): %v", err)
	}
	if parent != "" {
		t.Errorf("ParentOf(cccc) = %q, want empty", parent)
	}
}

func TestIndexSeparatesTags(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	s := database.PstatSeries{"syn", database.ProfileOpt, database.ScenarioFull, "instructions:u"}
	if err := db.RecordPstat(ctx, s, database.CommitArtifact(mustCommit("aaaa", 1)), 1); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordPstat(ctx, s, database.TagArtifact("1.51.0"), 2); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordPstat(ctx, s, database.TagArtifact("1.50.0"), 3); err != nil {
		t.Fatal(err)
	}

	idx, err := database.LoadIndex(ctx, db)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if got := idx.Commits(); len(got) != 1 || got[0].Sha != "aaaa" {
		t.Errorf("Commits() = %v, want [aaaa]", got)
	}
	tags := idx.Artifacts()
	if len(tags) != 2 || tags[0] != "1.50.0" || tags[1] != "1.51.0" {
		t.Errorf("Artifacts() = %v, want [1.50.0 1.51.0]", tags)
	}
	if got := idx.Benchmarks(); len(got) != 1 || got[0] != "syn" {
		t.Errorf("Benchmarks() = %v, want [syn]", got)
	}
	if got := idx.Metrics(); len(got) != 1 || got[0] != "instructions:u" {
		t.Errorf("Metrics() = %v, want [instructions:u]", got)
	}
}

func TestParseProfile(t *testing.T) {
	for _, s := range []string{"check", "debug", "doc", "opt"} {
		p, err := database.ParseProfile(s)
		if err != nil {
			t.Errorf("ParseProfile(%q): %v", s, err)
		}
		if p.String() != s {
			t.Errorf("ParseProfile(%q) = %q", s, p)
		}
	}
	if _, err := database.ParseProfile("release"); err == nil {
		t.Error("ParseProfile(release) succeeded, want error")
	}
}

func TestParseScenario(t *testing.T) {
	for _, s := range []string{"full", "incr-full", "incr-unchanged", "incr-patched: println"} {
		sc, err := database.ParseScenario(s)
		if err != nil {
			t.Errorf("ParseScenario(%q): %v", s, err)
		}
		if sc.String() != s {
			t.Errorf("ParseScenario(%q) = %q", s, sc)
		}
	}
	if _, err := database.ParseScenario("incremental"); err == nil {
		t.Error("ParseScenario(incremental) succeeded, want error")
	}
	if got := database.ScenarioIncrPatched("println"); got != database.Scenario("incr-patched: println") {
		t.Errorf("ScenarioIncrPatched(println) = %q", got)
	}
}
