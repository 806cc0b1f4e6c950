// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package database defines the data model for compiler performance
// results and provides the SQL-backed storage layer used by the rest
// of the system.
//
// A measurement is keyed by an artifact (a commit of the tracked
// repository, or a named artifact such as a release), a benchmark, a
// build profile, a cache scenario, and a metric. Self-profile results
// are additionally keyed by the internal query they describe. The
// Index type holds an immutable snapshot of all known keys; the DB
// type reads and writes the measurements themselves.
package database

import (
	"fmt"
	"strings"
	"time"
)

// A Date is the UTC timestamp attached to a commit or artifact.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given instant, normalized to UTC.
func NewDate(t time.Time) Date {
	return Date{t.UTC()}
}

// A Commit is a commit of the tracked repository for which
// measurements may exist. Identity is by Sha alone.
type Commit struct {
	Sha  string
	Date Date
}

// An ArtifactID identifies a measured artifact: a commit of the
// tracked repository, or a named non-commit artifact such as a
// release build. Exactly one of Commit.Sha and Tag is non-empty.
type ArtifactID struct {
	Commit Commit
	Tag    string
}

// CommitArtifact returns the ArtifactID for a commit.
func CommitArtifact(c Commit) ArtifactID {
	return ArtifactID{Commit: c}
}

// TagArtifact returns the ArtifactID for a named non-commit artifact.
func TagArtifact(name string) ArtifactID {
	return ArtifactID{Tag: name}
}

// IsCommit reports whether a identifies a commit rather than a named
// artifact.
func (a ArtifactID) IsCommit() bool {
	return a.Commit.Sha != ""
}

// Name returns the identity of the artifact: the commit sha, or the
// tag name.
func (a ArtifactID) Name() string {
	if a.IsCommit() {
		return a.Commit.Sha
	}
	return a.Tag
}

// Same reports whether a and b identify the same artifact. Two
// artifacts never share an identity within one Index.
func (a ArtifactID) Same(b ArtifactID) bool {
	return a.IsCommit() == b.IsCommit() && a.Name() == b.Name()
}

func (a ArtifactID) String() string {
	return a.Name()
}

// A Benchmark names a benchmark program in the suite.
type Benchmark string

// A Profile is the compiler build mode under which a benchmark ran.
type Profile string

// The known build profiles.
const (
	ProfileCheck Profile = "check"
	ProfileDebug Profile = "debug"
	ProfileDoc   Profile = "doc"
	ProfileOpt   Profile = "opt"
)

// ParseProfile parses the string form of a build profile.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(s); p {
	case ProfileCheck, ProfileDebug, ProfileDoc, ProfileOpt:
		return p, nil
	}
	return "", fmt.Errorf("unknown profile %q", s)
}

func (p Profile) String() string {
	return string(p)
}

// A Scenario is the incremental-cache state under which a benchmark
// ran: a full build from scratch, an incremental build from an empty
// or unchanged cache, or an incremental build after a named patch was
// applied.
type Scenario string

// The non-parameterized scenarios.
const (
	ScenarioFull          Scenario = "full"
	ScenarioIncrFull      Scenario = "incr-full"
	ScenarioIncrUnchanged Scenario = "incr-unchanged"
)

const incrPatchedPrefix = "incr-patched: "

// ScenarioIncrPatched returns the scenario for an incremental build
// performed after applying the named patch.
func ScenarioIncrPatched(patch string) Scenario {
	return Scenario(incrPatchedPrefix + patch)
}

// ParseScenario parses the string form of a cache scenario.
func ParseScenario(s string) (Scenario, error) {
	switch sc := Scenario(s); sc {
	case ScenarioFull, ScenarioIncrFull, ScenarioIncrUnchanged:
		return sc, nil
	}
	if strings.HasPrefix(s, incrPatchedPrefix) {
		return Scenario(s), nil
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

func (s Scenario) String() string {
	return string(s)
}

// A Metric names a process-level statistic collected for a benchmark
// run, such as "instructions:u" or "cpu-clock". The set of metrics is
// open; any name the collector reports is accepted.
type Metric string

// A QueryLabel names an internal compiler query in a self-profile.
type QueryLabel string

// A QueryDatum is the self-profile record for one internal query of
// one benchmark run.
type QueryDatum struct {
	SelfTime            time.Duration
	BlockedTime         time.Duration
	IncrementalLoadTime time.Duration
	CacheHits           uint32
	InvocationCount     uint32
}
