// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package selector

import (
	"sort"
	"time"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/database"
)

func parseBenchmark(s string) (database.Benchmark, error) {
	return database.Benchmark(s), nil
}

func parseMetric(s string) (database.Metric, error) {
	return database.Metric(s), nil
}

func parseQueryLabel(s string) (database.QueryLabel, error) {
	return database.QueryLabel(s), nil
}

// cpuClock values are recorded in milliseconds; every other metric is
// already in base units.
const cpuClock database.Metric = "cpu-clock"

// artifactRows maps artifacts to their storage rows, leaving 0 where
// the artifact was never recorded.
func artifactRows(idx *database.Index, artifacts []database.ArtifactID) []int32 {
	rows := make([]int32, len(artifacts))
	for i, a := range artifacts {
		if row, ok := idx.ArtifactRow(a); ok {
			rows[i] = row
		}
	}
	return rows
}

// expandPstats expands a query with benchmark, profile, scenario and
// metric selectors into process-statistic series.
func expandPstats(ctx context.Context, src Source, artifacts []database.ArtifactID, q Query) ([]SeriesResponse[*float64], error) {
	benchmarks, err := extractAs(&q, TagBenchmark, parseBenchmark)
	if err != nil {
		return nil, err
	}
	profiles, err := extractAs(&q, TagProfile, database.ParseProfile)
	if err != nil {
		return nil, err
	}
	scenarios, err := extractAs(&q, TagScenario, database.ParseScenario)
	if err != nil {
		return nil, err
	}
	metrics, err := extractAs(&q, TagMetric, parseMetric)
	if err != nil {
		return nil, err
	}
	if err := q.assertEmpty(); err != nil {
		return nil, err
	}

	idx := src.Index()
	var keys []database.PstatSeries
	for _, k := range idx.AllPstatSeries() {
		if benchmarks.Matches(k.Benchmark) && profiles.Matches(k.Profile) &&
			scenarios.Matches(k.Scenario) && metrics.Matches(k.Metric) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Benchmark != b.Benchmark {
			return a.Benchmark < b.Benchmark
		}
		if a.Profile != b.Profile {
			return a.Profile < b.Profile
		}
		if a.Scenario != b.Scenario {
			return a.Scenario < b.Scenario
		}
		return a.Metric < b.Metric
	})

	series := make([]int32, len(keys))
	for i, k := range keys {
		series[i], _ = idx.PstatSeriesRow(k)
	}

	tx, err := src.DB().Transaction(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	values, err := tx.Conn().GetPstats(ctx, series, artifactRows(idx, artifacts))
	if err != nil {
		return nil, err
	}

	out := make([]SeriesResponse[*float64], 0, len(keys))
	for i, k := range keys {
		vals := values[i]
		if k.Metric == cpuClock {
			for j, v := range vals {
				if v != nil {
					s := *v / 1000.0
					vals[j] = &s
				}
			}
		}
		path := Path{}.
			Add(TagBenchmark, string(k.Benchmark)).
			Add(TagProfile, string(k.Profile)).
			Add(TagScenario, string(k.Scenario)).
			Add(TagMetric, string(k.Metric))
		out = append(out, newSeries(path, artifacts, vals))
	}
	return out, nil
}

// expandQueryTime expands a query with benchmark, profile, scenario
// and query-label selectors into series of per-query self times, in
// seconds.
func expandQueryTime(ctx context.Context, src Source, artifacts []database.ArtifactID, q Query) ([]SeriesResponse[*float64], error) {
	benchmarks, err := extractAs(&q, TagBenchmark, parseBenchmark)
	if err != nil {
		return nil, err
	}
	profiles, err := extractAs(&q, TagProfile, database.ParseProfile)
	if err != nil {
		return nil, err
	}
	scenarios, err := extractAs(&q, TagScenario, database.ParseScenario)
	if err != nil {
		return nil, err
	}
	labels, err := extractAs(&q, TagQueryLabel, parseQueryLabel)
	if err != nil {
		return nil, err
	}
	if err := q.assertEmpty(); err != nil {
		return nil, err
	}

	idx := src.Index()
	var keys []database.QuerySeries
	for _, k := range idx.AllQuerySeries() {
		if benchmarks.Matches(k.Benchmark) && profiles.Matches(k.Profile) &&
			scenarios.Matches(k.Scenario) && labels.Matches(k.QueryLabel) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Benchmark != b.Benchmark {
			return a.Benchmark < b.Benchmark
		}
		if a.Profile != b.Profile {
			return a.Profile < b.Profile
		}
		if a.Scenario != b.Scenario {
			return a.Scenario < b.Scenario
		}
		return a.QueryLabel < b.QueryLabel
	})

	rows := artifactRows(idx, artifacts)
	tx, err := src.DB().Transaction(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	conn := tx.Conn()

	out := make([]SeriesResponse[*float64], 0, len(keys))
	for _, k := range keys {
		sid, _ := idx.QuerySeriesRow(k)
		values := make([]*float64, len(artifacts))
		for i, row := range rows {
			if row == 0 {
				continue
			}
			d, err := conn.GetSelfProfileQuery(ctx, sid, row)
			if err != nil {
				return nil, err
			}
			if d != nil {
				v := d.SelfTime.Seconds()
				values[i] = &v
			}
		}
		path := Path{}.
			Add(TagBenchmark, string(k.Benchmark)).
			Add(TagProfile, string(k.Profile)).
			Add(TagScenario, string(k.Scenario)).
			Add(TagQueryLabel, string(k.QueryLabel))
		out = append(out, newSeries(path, artifacts, values))
	}
	return out, nil
}

// A QueryData is the self-profile record for one internal query of
// one benchmark run. Times are in nanoseconds.
type QueryData struct {
	Label               database.QueryLabel `json:"label"`
	SelfTime            uint64              `json:"self_time"`
	NumberOfCacheMisses uint32              `json:"number_of_cache_misses"`
	NumberOfCacheHits   uint32              `json:"number_of_cache_hits"`
	InvocationCount     uint32              `json:"invocation_count"`
	BlockedTime         uint64              `json:"blocked_time"`
	IncrementalLoadTime uint64              `json:"incremental_load_time"`
}

// A SelfProfileData is the full self-profile of one benchmark run,
// one record per internal query, sorted by label.
type SelfProfileData struct {
	QueryData []QueryData `json:"query_data"`
}

// expandSelfProfile expands a query with benchmark, profile and
// scenario selectors into full self-profile series, one per distinct
// benchmark configuration with self-profile records.
func expandSelfProfile(ctx context.Context, src Source, artifacts []database.ArtifactID, q Query) ([]SeriesResponse[*SelfProfileData], error) {
	benchmarks, err := extractAs(&q, TagBenchmark, parseBenchmark)
	if err != nil {
		return nil, err
	}
	profiles, err := extractAs(&q, TagProfile, database.ParseProfile)
	if err != nil {
		return nil, err
	}
	scenarios, err := extractAs(&q, TagScenario, database.ParseScenario)
	if err != nil {
		return nil, err
	}
	if err := q.assertEmpty(); err != nil {
		return nil, err
	}

	type config struct {
		benchmark database.Benchmark
		profile   database.Profile
		scenario  database.Scenario
	}
	idx := src.Index()
	var configs []config
	for _, k := range idx.AllQuerySeries() {
		if benchmarks.Matches(k.Benchmark) && profiles.Matches(k.Profile) && scenarios.Matches(k.Scenario) {
			configs = append(configs, config{k.Benchmark, k.Profile, k.Scenario})
		}
	}
	sort.Slice(configs, func(i, j int) bool {
		a, b := configs[i], configs[j]
		if a.benchmark != b.benchmark {
			return a.benchmark < b.benchmark
		}
		if a.profile != b.profile {
			return a.profile < b.profile
		}
		return a.scenario < b.scenario
	})
	// several query series share a configuration
	configs = dedupConfigs(configs)

	rows := artifactRows(idx, artifacts)
	tx, err := src.DB().Transaction(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	conn := tx.Conn()

	out := make([]SeriesResponse[*SelfProfileData], 0, len(configs))
	for _, c := range configs {
		values := make([]*SelfProfileData, len(artifacts))
		for i, row := range rows {
			if row == 0 {
				continue
			}
			records, err := conn.GetSelfProfile(ctx, row, c.benchmark, c.profile, c.scenario)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				continue
			}
			data := &SelfProfileData{QueryData: make([]QueryData, 0, len(records))}
			for label, d := range records {
				data.QueryData = append(data.QueryData, QueryData{
					Label:               label,
					SelfTime:            uint64(d.SelfTime),
					NumberOfCacheMisses: d.InvocationCount - d.CacheHits,
					NumberOfCacheHits:   d.CacheHits,
					InvocationCount:     d.InvocationCount,
					BlockedTime:         uint64(d.BlockedTime),
					IncrementalLoadTime: uint64(d.IncrementalLoadTime),
				})
			}
			sort.Slice(data.QueryData, func(a, b int) bool {
				return data.QueryData[a].Label < data.QueryData[b].Label
			})
			values[i] = data
		}
		path := Path{}.
			Add(TagBenchmark, string(c.benchmark)).
			Add(TagProfile, string(c.profile)).
			Add(TagScenario, string(c.scenario))
		out = append(out, newSeries(path, artifacts, values))
	}
	return out, nil
}

func dedupConfigs[T comparable](configs []T) []T {
	out := configs[:0]
	for i, c := range configs {
		if i == 0 || c != configs[i-1] {
			out = append(out, c)
		}
	}
	return out
}

// SelfTimeDuration returns the record's self time as a Duration.
func (d QueryData) SelfTimeDuration() time.Duration {
	return time.Duration(d.SelfTime)
}
