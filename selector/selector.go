// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package selector expands queries over the series key space into
// concrete measurement series.
//
// A series is keyed by up to five dimensions, identified by Tag:
// benchmark, profile, scenario, metric, and self-profile query label.
// A Query restricts each dimension with a Selector; expansion matches
// the query against the index, fetches the stored values for every
// matching series, and returns one SeriesResponse per series with
// exactly one value per requested artifact, in request order.
//
// Each query shape is understood by exactly one provider. A query
// with a metric selector expands to process statistics; a query with
// a query-label selector expands to self-profile query times. The
// providers are mutually exclusive by construction: every provider
// consumes the selectors it understands and rejects queries with
// selectors left over.
package selector

import (
	"fmt"
	"strings"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/database"
)

// A Tag identifies one dimension of the series key space.
type Tag int

const (
	TagBenchmark Tag = iota
	TagProfile
	TagScenario
	TagMetric
	TagQueryLabel
)

func (t Tag) String() string {
	switch t {
	case TagBenchmark:
		return "benchmark"
	case TagProfile:
		return "profile"
	case TagScenario:
		return "scenario"
	case TagMetric:
		return "metric"
	case TagQueryLabel:
		return "query"
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

type selectorKind int

const (
	selAll selectorKind = iota
	selSubset
	selOne
)

// A Selector restricts one dimension of a query: to everything, to a
// subset of values, or to exactly one value. The zero Selector
// matches everything.
type Selector[T comparable] struct {
	kind   selectorKind
	one    T
	subset []T
}

// All returns the Selector matching every value.
func All[T comparable]() Selector[T] {
	return Selector[T]{kind: selAll}
}

// One returns the Selector matching exactly v.
func One[T comparable](v T) Selector[T] {
	return Selector[T]{kind: selOne, one: v}
}

// Subset returns the Selector matching any of vs.
func Subset[T comparable](vs ...T) Selector[T] {
	return Selector[T]{kind: selSubset, subset: vs}
}

// Matches reports whether the selector admits v.
func (s Selector[T]) Matches(v T) bool {
	switch s.kind {
	case selOne:
		return s.one == v
	case selSubset:
		for _, x := range s.subset {
			if x == v {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func (s Selector[T]) String() string {
	switch s.kind {
	case selOne:
		return fmt.Sprintf("%v", s.one)
	case selSubset:
		return fmt.Sprintf("%v", s.subset)
	default:
		return "*"
	}
}

// mapSelector converts a selector between domains, failing if any
// chosen value fails to parse.
func mapSelector[T, U comparable](s Selector[T], parse func(T) (U, error)) (Selector[U], error) {
	switch s.kind {
	case selOne:
		u, err := parse(s.one)
		if err != nil {
			return Selector[U]{}, err
		}
		return One(u), nil
	case selSubset:
		us := make([]U, 0, len(s.subset))
		for _, v := range s.subset {
			u, err := parse(v)
			if err != nil {
				return Selector[U]{}, err
			}
			us = append(us, u)
		}
		return Subset(us...), nil
	default:
		return All[U](), nil
	}
}

// A QueryComponent pairs a tag with the selector applied to it.
type QueryComponent struct {
	Tag      Tag
	Selector Selector[string]
}

func (qc QueryComponent) String() string {
	return fmt.Sprintf("%s=%s", qc.Tag, qc.Selector)
}

// A Query restricts the series a request expands to. Each tag appears
// at most once; setting a tag that is already present replaces its
// selector. The zero Query has no restrictions, which no provider
// accepts: a provider requires a selector, even if it is All, for
// every dimension it understands.
type Query struct {
	path []QueryComponent
}

// Set returns a copy of q with the selector for tag t set to s.
func (q Query) Set(t Tag, s Selector[string]) Query {
	path := make([]QueryComponent, len(q.path), len(q.path)+1)
	copy(path, q.path)
	for i := range path {
		if path[i].Tag == t {
			path[i].Selector = s
			return Query{path}
		}
	}
	return Query{append(path, QueryComponent{t, s})}
}

func (q Query) String() string {
	parts := make([]string, len(q.path))
	for i, qc := range q.path {
		parts[i] = qc.String()
	}
	return strings.Join(parts, " ")
}

// clone returns a Query whose mutation cannot affect q. Providers
// extract selectors destructively, so each provider works on its own
// clone.
func (q Query) clone() Query {
	path := make([]QueryComponent, len(q.path))
	copy(path, q.path)
	return Query{path}
}

// extract removes and returns the component for tag t.
func (q *Query) extract(t Tag) (QueryComponent, error) {
	for i, qc := range q.path {
		if qc.Tag == t {
			q.path = append(q.path[:i], q.path[i+1:]...)
			return qc, nil
		}
	}
	return QueryComponent{}, fmt.Errorf("query must have %s selector", t)
}

// extractAs removes the component for tag t and parses its selector
// into the tag's domain.
func extractAs[T comparable](q *Query, t Tag, parse func(string) (T, error)) (Selector[T], error) {
	qc, err := q.extract(t)
	if err != nil {
		return Selector[T]{}, err
	}
	return mapSelector(qc.Selector, parse)
}

// assertEmpty fails if the query still has selectors a provider did
// not consume.
func (q *Query) assertEmpty() error {
	if len(q.path) != 0 {
		return fmt.Errorf("query hit end state with %v remaining", q.path)
	}
	return nil
}

// A PathComponent fixes one dimension of a series key to a concrete
// value.
type PathComponent struct {
	Tag   Tag
	Value string
}

func (pc PathComponent) String() string {
	return fmt.Sprintf("%s=%s", pc.Tag, pc.Value)
}

// A Path identifies one expanded series: an ordered list of fixed
// dimensions. Each tag appears at most once; adding a tag that is
// already present replaces the value but keeps the original position.
type Path struct {
	path []PathComponent
}

// Add returns a copy of p with the component for tag t set to value.
func (p Path) Add(t Tag, value string) Path {
	path := make([]PathComponent, len(p.path), len(p.path)+1)
	copy(path, p.path)
	for i := range path {
		if path[i].Tag == t {
			path[i].Value = value
			return Path{path}
		}
	}
	return Path{append(path, PathComponent{t, value})}
}

// Components returns the path's components in order. The returned
// slice must not be modified.
func (p Path) Components() []PathComponent {
	return p.path
}

func (p Path) get(t Tag) (string, error) {
	for _, pc := range p.path {
		if pc.Tag == t {
			return pc.Value, nil
		}
	}
	return "", fmt.Errorf("path must have %s component", t)
}

// Benchmark returns the path's benchmark component.
func (p Path) Benchmark() (database.Benchmark, error) {
	v, err := p.get(TagBenchmark)
	return database.Benchmark(v), err
}

// Profile returns the path's profile component.
func (p Path) Profile() (database.Profile, error) {
	v, err := p.get(TagProfile)
	return database.Profile(v), err
}

// Scenario returns the path's scenario component.
func (p Path) Scenario() (database.Scenario, error) {
	v, err := p.get(TagScenario)
	return database.Scenario(v), err
}

// Metric returns the path's metric component.
func (p Path) Metric() (database.Metric, error) {
	v, err := p.get(TagMetric)
	return database.Metric(v), err
}

// QueryLabel returns the path's query-label component.
func (p Path) QueryLabel() (database.QueryLabel, error) {
	v, err := p.get(TagQueryLabel)
	return database.QueryLabel(v), err
}

func (p Path) String() string {
	parts := make([]string, len(p.path))
	for i, pc := range p.path {
		parts[i] = pc.String()
	}
	return strings.Join(parts, " ")
}

// A Point pairs an artifact with the value observed for it. A nil
// value means the artifact has no measurement for the series.
type Point[T any] struct {
	ArtifactID database.ArtifactID
	Value      T
}

// A SeriesResponse is one expanded series: the path identifying it
// and one point per requested artifact, in request order.
type SeriesResponse[T any] struct {
	Path   Path
	Series []Point[T]
}

// newSeries pairs values with the artifacts they were observed at.
// Every provider must produce exactly one value per artifact.
func newSeries[T any](path Path, artifacts []database.ArtifactID, values []T) SeriesResponse[T] {
	if len(values) != len(artifacts) {
		panic(fmt.Sprintf("series %v produced %d values for %d artifacts", path, len(values), len(artifacts)))
	}
	points := make([]Point[T], len(values))
	for i := range values {
		points[i] = Point[T]{ArtifactID: artifacts[i], Value: values[i]}
	}
	return SeriesResponse[T]{Path: path, Series: points}
}

// A Source provides what query expansion needs: an index snapshot and
// access to stored measurements. Implementations return the same
// snapshot for the lifetime of a request.
type Source interface {
	Index() *database.Index
	DB() *database.DB
}

type result[T any] struct {
	series []SeriesResponse[T]
	err    error
}

// handleResults returns the single successful expansion. Providers
// are mutually exclusive; a query that two providers both understand
// is a bug, not a user error.
func handleResults[T any](results []result[T]) ([]SeriesResponse[T], error) {
	var (
		found []SeriesResponse[T]
		ok    bool
		errs  []string
	)
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err.Error())
			continue
		}
		if ok {
			panic("two series successfully expanded")
		}
		found, ok = r.series, true
	}
	if ok {
		return found, nil
	}
	return nil, fmt.Errorf("failed to process query; fix one of these errors: %s", strings.Join(errs, "; or "))
}

// QueryScalar expands q into scalar-valued series, resolving each to
// one value per artifact in artifacts, in order.
func QueryScalar(ctx context.Context, src Source, artifacts []database.ArtifactID, q Query) ([]SeriesResponse[*float64], error) {
	pstats, perr := expandPstats(ctx, src, artifacts, q.clone())
	queryTimes, qerr := expandQueryTime(ctx, src, artifacts, q.clone())
	return handleResults([]result[*float64]{
		{pstats, perr},
		{queryTimes, qerr},
	})
}

// QuerySelfProfile expands q into full self-profile series, resolving
// each to one aggregate per artifact in artifacts, in order.
func QuerySelfProfile(ctx context.Context, src Source, artifacts []database.ArtifactID, q Query) ([]SeriesResponse[*SelfProfileData], error) {
	profiles, err := expandSelfProfile(ctx, src, artifacts, q.clone())
	return handleResults([]result[*SelfProfileData]{
		{profiles, err},
	})
}
