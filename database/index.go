// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package database

import (
	"database/sql"
	"sort"

	"golang.org/x/net/context"
)

// A PstatSeries keys one process-statistic series: the values of one
// metric for one benchmark configuration across artifacts.
type PstatSeries struct {
	Benchmark Benchmark
	Profile   Profile
	Scenario  Scenario
	Metric    Metric
}

// A QuerySeries keys one self-profile series: the records of one
// internal compiler query for one benchmark configuration across
// artifacts.
type QuerySeries struct {
	Benchmark  Benchmark
	Profile    Profile
	Scenario   Scenario
	QueryLabel QueryLabel
}

// An Index is an immutable snapshot of the database's keys: the known
// commits and named artifacts, and the series that have been measured
// for them. Readers obtain one snapshot and use it for the lifetime
// of a query, so concurrent refreshes never change results mid-query.
type Index struct {
	commits      []Commit
	artifacts    []string
	artifactRows map[string]int32
	pstatSeries  map[PstatSeries]int32
	querySeries  map[QuerySeries]int32
}

// NewIndex returns an Index over the given commits, artifact names,
// and series rows. Commits must be sorted by date, oldest first.
// LoadIndex is the usual constructor; NewIndex exists for callers
// that fabricate snapshots, such as tests.
func NewIndex(commits []Commit, artifacts []string, artifactRows map[string]int32, pstat map[PstatSeries]int32, query map[QuerySeries]int32) *Index {
	if artifactRows == nil {
		artifactRows = make(map[string]int32)
	}
	if pstat == nil {
		pstat = make(map[PstatSeries]int32)
	}
	if query == nil {
		query = make(map[QuerySeries]int32)
	}
	return &Index{
		commits:      commits,
		artifacts:    artifacts,
		artifactRows: artifactRows,
		pstatSeries:  pstat,
		querySeries:  query,
	}
}

// Commits returns the known commits of the tracked repository, sorted
// by date, oldest first. The returned slice must not be modified.
func (idx *Index) Commits() []Commit {
	return idx.commits
}

// Artifacts returns the names of the known non-commit artifacts,
// sorted. The returned slice must not be modified.
func (idx *Index) Artifacts() []string {
	return idx.artifacts
}

// ArtifactRow returns the storage row ID for an artifact, if the
// artifact has been recorded.
func (idx *Index) ArtifactRow(a ArtifactID) (int32, bool) {
	row, ok := idx.artifactRows[a.Name()]
	return row, ok
}

// PstatSeriesRow returns the storage row ID for a process-statistic
// series, if any measurements exist for it.
func (idx *Index) PstatSeriesRow(s PstatSeries) (int32, bool) {
	row, ok := idx.pstatSeries[s]
	return row, ok
}

// QuerySeriesRow returns the storage row ID for a self-profile
// series, if any measurements exist for it.
func (idx *Index) QuerySeriesRow(s QuerySeries) (int32, bool) {
	row, ok := idx.querySeries[s]
	return row, ok
}

// AllPstatSeries returns the keys of every known process-statistic
// series, in unspecified order.
func (idx *Index) AllPstatSeries() []PstatSeries {
	out := make([]PstatSeries, 0, len(idx.pstatSeries))
	for s := range idx.pstatSeries {
		out = append(out, s)
	}
	return out
}

// AllQuerySeries returns the keys of every known self-profile series,
// in unspecified order.
func (idx *Index) AllQuerySeries() []QuerySeries {
	out := make([]QuerySeries, 0, len(idx.querySeries))
	for s := range idx.querySeries {
		out = append(out, s)
	}
	return out
}

// Metrics returns the distinct metric names present in the index,
// sorted.
func (idx *Index) Metrics() []Metric {
	seen := make(map[Metric]bool)
	for s := range idx.pstatSeries {
		seen[s.Metric] = true
	}
	out := make([]Metric, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Benchmarks returns the distinct benchmark names present in the
// index, sorted.
func (idx *Index) Benchmarks() []Benchmark {
	seen := make(map[Benchmark]bool)
	for s := range idx.pstatSeries {
		seen[s.Benchmark] = true
	}
	out := make([]Benchmark, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadIndex reads a fresh Index snapshot from the database.
func LoadIndex(ctx context.Context, db *DB) (*Index, error) {
	var commits []Commit
	var artifacts []string
	artifactRows := make(map[string]int32)

	rows, err := db.sql.QueryContext(ctx, "SELECT ArtifactID, Name, Date, Type FROM Artifact")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			row  int32
			name string
			date sql.NullTime
			typ  string
		)
		if err := rows.Scan(&row, &name, &date, &typ); err != nil {
			rows.Close()
			return nil, err
		}
		artifactRows[name] = row
		if typ == artifactMaster {
			commits = append(commits, Commit{Sha: name, Date: NewDate(date.Time)})
		} else {
			artifacts = append(artifacts, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Date.Before(commits[j].Date.Time) })
	sort.Strings(artifacts)

	pstat := make(map[PstatSeries]int32)
	rows, err = db.sql.QueryContext(ctx, "SELECT SeriesID, Benchmark, Profile, Scenario, Metric FROM PstatSeries")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			row                  int32
			bench, prof, sc, met string
		)
		if err := rows.Scan(&row, &bench, &prof, &sc, &met); err != nil {
			rows.Close()
			return nil, err
		}
		p, err := ParseProfile(prof)
		if err != nil {
			rows.Close()
			return nil, err
		}
		s, err := ParseScenario(sc)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pstat[PstatSeries{Benchmark(bench), p, s, Metric(met)}] = row
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query := make(map[QuerySeries]int32)
	rows, err = db.sql.QueryContext(ctx, "SELECT SeriesID, Benchmark, Profile, Scenario, QueryLabel FROM SelfProfileSeries")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			row                    int32
			bench, prof, sc, label string
		)
		if err := rows.Scan(&row, &bench, &prof, &sc, &label); err != nil {
			rows.Close()
			return nil, err
		}
		p, err := ParseProfile(prof)
		if err != nil {
			rows.Close()
			return nil, err
		}
		s, err := ParseScenario(sc)
		if err != nil {
			rows.Close()
			return nil, err
		}
		query[QuerySeries{Benchmark(bench), p, s, QueryLabel(label)}] = row
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewIndex(commits, artifacts, artifactRows, pstat, query), nil
}
