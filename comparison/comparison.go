// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package comparison compares the measurements of two artifacts. It
// backs the compare endpoint and the triage report.
//
// A comparison holds one DateData per side: every value of one metric
// at that artifact, keyed by "benchmark-profile". Pairing the sides
// by benchmark configuration yields BenchmarkComparisons, whose
// log-change decides whether a change is significant and in which
// direction it points.
package comparison

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/github"
	"github.com/chengr4/rustc-perf/selector"
)

// A ScenarioValue is one measurement of a benchmark configuration
// under one cache scenario.
type ScenarioValue struct {
	Scenario string  `json:"scenario"`
	Value    float64 `json:"value"`
}

// A DateData is one side of a comparison: every measured value of one
// metric at one artifact, keyed by "benchmark-profile", along with
// the artifact's identity and bootstrap timings.
type DateData struct {
	Date      *database.Date             `json:"date"`
	PR        uint32                     `json:"pr,omitempty"`
	Commit    string                     `json:"commit"`
	Data      map[string][]ScenarioValue `json:"data"`
	Bootstrap map[string]uint64          `json:"bootstrap"`
}

// newDateData consumes one side of the expanded series: the point at
// position at of every series, which must belong to artifact.
// Bootstrap durations under a second are dropped; wall-time that
// short is dominated by process startup and not worth comparing.
func newDateData(ctx context.Context, conn *database.Conn, idx *database.Index, artifact database.ArtifactID, series []selector.SeriesResponse[*float64], at int, master []collector.MasterCommit) (DateData, error) {
	data := make(map[string][]ScenarioValue)
	for _, resp := range series {
		pt := resp.Series[at]
		if !pt.ArtifactID.Same(artifact) {
			panic(fmt.Sprintf("series %v: point %d belongs to %s, want %s", resp.Path, at, pt.ArtifactID, artifact))
		}
		if pt.Value == nil {
			continue
		}
		benchmark, err := resp.Path.Benchmark()
		if err != nil {
			return DateData{}, err
		}
		profile, err := resp.Path.Profile()
		if err != nil {
			return DateData{}, err
		}
		scenario, err := resp.Path.Scenario()
		if err != nil {
			return DateData{}, err
		}
		key := fmt.Sprintf("%s-%s", benchmark, profile)
		data[key] = append(data[key], ScenarioValue{Scenario: string(scenario), Value: *pt.Value})
	}

	bootstrap := make(map[string]uint64)
	if row, ok := idx.ArtifactRow(artifact); ok {
		durs, err := conn.GetBootstrap(ctx, []int32{row})
		if err != nil {
			return DateData{}, err
		}
		for benchmark, ds := range durs {
			if d := ds[0]; d != nil && *d >= time.Second {
				bootstrap[string(benchmark)] = uint64(d.Nanoseconds())
			}
		}
	}

	dd := DateData{Commit: artifact.Name(), Data: data, Bootstrap: bootstrap}
	if artifact.IsCommit() {
		date := artifact.Commit.Date
		dd.Date = &date
		if mc := collector.FindMaster(master, artifact.Commit.Sha); mc != nil {
			dd.PR = mc.PR
		} else {
			pr, err := conn.PrOf(ctx, artifact.Commit.Sha)
			if err != nil {
				return DateData{}, err
			}
			dd.PR = pr
		}
	}
	return dd, nil
}

// A Comparison is the result of comparing one metric at two
// artifacts.
type Comparison struct {
	AID database.ArtifactID
	A   DateData
	BID database.ArtifactID
	B   DateData
}

// Compare resolves two bounds against the index and compares the
// given metric at the artifacts they resolve to.
func Compare(ctx context.Context, src selector.Source, start, end collector.Bound, stat database.Metric, master []collector.MasterCommit) (*Comparison, error) {
	idx := src.Index()
	a, ok := selector.ArtifactIDForBound(idx, start, true)
	if !ok {
		return nil, fmt.Errorf("could not find start commit for bound %v", start)
	}
	b, ok := selector.ArtifactIDForBound(idx, end, false)
	if !ok {
		return nil, fmt.Errorf("could not find end commit for bound %v", end)
	}
	artifacts := []database.ArtifactID{a, b}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.All[string]()).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagMetric, selector.One(string(stat)))
	series, err := selector.QueryScalar(ctx, src, artifacts, q)
	if err != nil {
		return nil, err
	}

	tx, err := src.DB().Transaction(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	conn := tx.Conn()

	aData, err := newDateData(ctx, conn, idx, a, series, 0, master)
	if err != nil {
		return nil, err
	}
	bData, err := newDateData(ctx, conn, idx, b, series, 1, master)
	if err != nil {
		return nil, err
	}
	return &Comparison{AID: a, A: aData, BID: b, B: bData}, nil
}

// Prev returns the parent of the comparison's start commit, if the
// start is a commit in the master list.
func (c *Comparison) Prev(master []collector.MasterCommit) (string, bool) {
	if !c.AID.IsCommit() {
		return "", false
	}
	if mc := collector.FindMaster(master, c.AID.Commit.Sha); mc != nil {
		return mc.ParentSha, true
	}
	return "", false
}

// Next returns the child of the comparison's end commit, if one has
// landed.
func (c *Comparison) Next(master []collector.MasterCommit) (string, bool) {
	if !c.BID.IsCommit() {
		return "", false
	}
	if mc := collector.FindChild(master, c.BID.Commit.Sha); mc != nil {
		return mc.Sha, true
	}
	return "", false
}

// IsContiguous reports whether the end commit is the direct child of
// the start commit, consulting the database when the end commit is
// not in the master list.
func (c *Comparison) IsContiguous(ctx context.Context, conn *database.Conn, master []collector.MasterCommit) (bool, error) {
	if !c.AID.IsCommit() || !c.BID.IsCommit() {
		return false, nil
	}
	if mc := collector.FindMaster(master, c.BID.Commit.Sha); mc != nil {
		return mc.ParentSha == c.AID.Commit.Sha, nil
	}
	parent, err := conn.ParentOf(ctx, c.BID.Commit.Sha)
	if err != nil {
		return false, err
	}
	return parent != "" && parent == c.AID.Commit.Sha, nil
}

// docSuffix marks documentation builds, which are excluded from
// comparisons.
const docSuffix = "-doc"

// GetBenchmarks pairs the two sides by benchmark configuration. Only
// configurations measured on both sides compare; documentation builds
// are skipped.
func (c *Comparison) GetBenchmarks() []*BenchmarkComparison {
	names := make([]string, 0, len(c.A.Data))
	for name := range c.A.Data {
		names = append(names, name)
	}
	sort.Strings(names)

	var result []*BenchmarkComparison
	for _, name := range names {
		if strings.HasSuffix(name, docSuffix) {
			continue
		}
		bValues, ok := c.B.Data[name]
		if !ok {
			continue
		}
		for _, av := range c.A.Data[name] {
			for _, bv := range bValues {
				if bv.Scenario == av.Scenario {
					result = append(result, &BenchmarkComparison{
						name:     name,
						scenario: av.Scenario,
						a:        av.Value,
						b:        bv.Value,
					})
					break
				}
			}
		}
	}
	return result
}

// significanceThreshold is the log-change magnitude above which a
// change counts as significant.
const significanceThreshold = 0.01

// A BenchmarkComparison compares the values of one benchmark
// configuration at the two artifacts.
type BenchmarkComparison struct {
	name     string
	scenario string
	a, b     float64
}

// NewBenchmarkComparison returns the comparison of one configuration,
// identified by its "benchmark-profile" name and scenario, between
// value a and value b.
func NewBenchmarkComparison(name, scenario string, a, b float64) *BenchmarkComparison {
	return &BenchmarkComparison{name: name, scenario: scenario, a: a, b: b}
}

// LogChange returns ln(b/a), the symmetric measure of the change.
func (c *BenchmarkComparison) LogChange() float64 {
	return math.Log(c.b / c.a)
}

// IsIncrease reports whether the value went up.
func (c *BenchmarkComparison) IsIncrease() bool {
	return c.b > c.a
}

// IsSignificant reports whether the change is large enough to matter.
func (c *BenchmarkComparison) IsSignificant() bool {
	// This particular configuration frequently varies.
	if strings.HasPrefix(c.name, "coercions-debug") && c.scenario == string(database.ScenarioIncrPatched("println")) {
		return math.Abs(c.RelativeChange()) > 2.0
	}
	return math.Abs(c.LogChange()) > significanceThreshold
}

// RelativeChange returns (b-a)/a.
func (c *BenchmarkComparison) RelativeChange() float64 {
	return (c.b - c.a) / c.a
}

// Direction reports which way the change points. A metric that did
// not strictly increase counts as an improvement.
func (c *BenchmarkComparison) Direction() Direction {
	if c.LogChange() > 0 {
		return Regression
	}
	return Improvement
}

func (c *BenchmarkComparison) summaryLine(w *strings.Builder, link string) {
	magnitude := math.Abs(c.LogChange())
	var size string
	switch {
	case magnitude > 0.10:
		size = "Very large"
	case magnitude > 0.05:
		size = "Large"
	case magnitude > 0.01:
		size = "Moderate"
	case magnitude > 0.005:
		size = "Small"
	default:
		size = "Very small"
	}

	percent := c.RelativeChange() * 100
	fmt.Fprintf(w, "%s %s in [instruction counts](%s)", size, c.Direction(), link)
	fmt.Fprintf(w, " (up to %.1f%% on `%s` builds of `%s`)\n", percent, c.scenario, c.name)
}

// Direction is which way a performance change points.
type Direction int

const (
	Improvement Direction = iota
	Regression
	Mixed
)

func (d Direction) String() string {
	switch d {
	case Improvement:
		return "improvement"
	case Regression:
		return "regression"
	case Mixed:
		return "mixed"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// A ComparisonSummary is the most significant decrease and increase
// of a comparison, either of which may be absent.
type ComparisonSummary struct {
	hi *BenchmarkComparison
	lo *BenchmarkComparison
}

// summarizeComparison picks the most significant changes of a
// comparison, or nil if nothing was measured on both sides. Empty
// comparisons happen when a commit broke the collector.
func summarizeComparison(c *Comparison) *ComparisonSummary {
	benchmarks := c.GetBenchmarks()
	if len(benchmarks) == 0 {
		return nil
	}

	lo := 0
	for i, b := range benchmarks {
		if b.LogChange() < benchmarks[lo].LogChange() {
			lo = i
		}
	}
	var loC *BenchmarkComparison
	if b := benchmarks[lo]; b.IsSignificant() && !b.IsIncrease() {
		loC = b
		benchmarks = append(benchmarks[:lo], benchmarks[lo+1:]...)
	}

	var hiC *BenchmarkComparison
	if len(benchmarks) > 0 {
		hi := 0
		for i, b := range benchmarks {
			if b.LogChange() >= benchmarks[hi].LogChange() {
				hi = i
			}
		}
		if b := benchmarks[hi]; b.IsSignificant() && b.IsIncrease() {
			hiC = b
		}
	}
	return &ComparisonSummary{hi: hiC, lo: loC}
}

// direction reports the overall direction of the summary's changes.
func (s *ComparisonSummary) direction() (Direction, bool) {
	switch {
	case s.hi == nil && s.lo == nil:
		return 0, false
	case s.hi != nil && s.lo == nil:
		return s.hi.Direction(), true
	case s.hi == nil:
		return s.lo.Direction(), true
	case s.hi.IsIncrease() == s.lo.IsIncrease():
		return s.hi.Direction(), true
	default:
		return Mixed, true
	}
}

// orderedChanges returns the summary's changes, most significant
// first.
func (s *ComparisonSummary) orderedChanges() []*BenchmarkComparison {
	switch {
	case s.hi == nil && s.lo == nil:
		return nil
	case s.hi != nil && s.lo == nil:
		return []*BenchmarkComparison{s.hi}
	case s.hi == nil:
		return []*BenchmarkComparison{s.lo}
	case math.Abs(s.lo.LogChange()) > math.Abs(s.hi.LogChange()):
		return []*BenchmarkComparison{s.lo, s.hi}
	default:
		return []*BenchmarkComparison{s.hi, s.lo}
	}
}

// write renders the summary as a report entry: the change's pull
// request heading followed by one line per significant change.
func (s *ComparisonSummary) write(ctx context.Context, gh *github.Client, c *Comparison) string {
	var result strings.Builder
	if c.B.PR != 0 {
		title := gh.PRTitle(ctx, c.B.PR)
		fmt.Fprintf(&result, "%s [#%d](https://github.com/rust-lang/rust/issues/%d)\n", title, c.B.PR, c.B.PR)
	} else {
		result.WriteString("<Unknown Change>\n")
	}

	link := compareLink(c.A.Commit, c.B.Commit)
	for _, change := range s.orderedChanges() {
		result.WriteString("- ")
		change.summaryLine(&result, link)
	}
	return result.String()
}

func compareLink(start, end string) string {
	return fmt.Sprintf("https://perf.rust-lang.org/compare.html?start=%s&end=%s&stat=instructions:u", start, end)
}

// A CompareResponse is the payload of the compare endpoint: the two
// sides of the comparison, their neighbors in the commit chain, and
// summary statistics over every compared configuration.
type CompareResponse struct {
	Prev         *string       `json:"prev"`
	A            DateData      `json:"a"`
	B            DateData      `json:"b"`
	Next         *string       `json:"next"`
	IsContiguous bool          `json:"is_contiguous"`
	Summary      *ChangeSpread `json:"summary,omitempty"`
}

// HandleCompare compares the given metric between two bounds and
// annotates the result with the surrounding commits.
func HandleCompare(ctx context.Context, src selector.Source, start, end collector.Bound, stat database.Metric, master []collector.MasterCommit) (*CompareResponse, error) {
	c, err := Compare(ctx, src, start, end, stat, master)
	if err != nil {
		return nil, err
	}

	tx, err := src.DB().Transaction(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	contiguous, err := c.IsContiguous(ctx, tx.Conn(), master)
	if err != nil {
		return nil, err
	}

	resp := &CompareResponse{A: c.A, B: c.B, IsContiguous: contiguous}
	if prev, ok := c.Prev(master); ok {
		resp.Prev = &prev
	}
	if next, ok := c.Next(master); ok {
		resp.Next = &next
	}
	resp.Summary = SummarizeChanges(c.GetBenchmarks(), 0.95)
	return resp, nil
}
