// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collector holds the types shared with the benchmark
// collector: range bounds over the commit history, the master commit
// list fetched from the queue service, and the benchmark runner
// under collector/benchlib.
package collector

import (
	"encoding/json"
	"time"

	"github.com/chengr4/rustc-perf/database"
)

type boundKind int

const (
	boundNone boundKind = iota
	boundCommit
	boundDate
)

// recentWindow is how far back an unspecified bound reaches.
const recentWindow = 30 * 24 * time.Hour

// A Bound locates one end of a range of commits: an exact commit, a
// calendar date, or nothing. The zero Bound matches the recent
// history window and is what an omitted request field parses to.
type Bound struct {
	kind boundKind
	sha  string
	date time.Time
}

// CommitBound returns the Bound matching exactly the given sha.
func CommitBound(sha string) Bound {
	return Bound{kind: boundCommit, sha: sha}
}

// DateBound returns the Bound for the calendar day containing t.
func DateBound(t time.Time) Bound {
	y, m, d := t.UTC().Date()
	return Bound{kind: boundDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseBound parses the request form of a bound: an empty string is
// the zero Bound, a YYYY-MM-DD string is a date bound, and anything
// else names a commit.
func ParseBound(s string) Bound {
	if s == "" {
		return Bound{}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return DateBound(t)
	}
	return CommitBound(s)
}

// IsNone reports whether the bound is the unspecified zero Bound.
func (b Bound) IsNone() bool {
	return b.kind == boundNone
}

// LeftMatch reports whether the commit is within the bound's
// acceptance window. Scanning history oldest-first, the first match
// is the bound's left resolution; the last match is its right
// resolution. A commit bound accepts only that commit. A date bound
// accepts every commit on or after the date. The zero bound accepts
// commits within the recent history window.
func (b Bound) LeftMatch(c database.Commit) bool {
	switch b.kind {
	case boundCommit:
		return c.Sha == b.sha
	case boundDate:
		return !c.Date.Before(b.date)
	default:
		return time.Since(c.Date.Time) <= recentWindow
	}
}

// MatchesTag reports whether the bound names the given non-commit
// artifact.
func (b Bound) MatchesTag(name string) bool {
	return b.kind == boundCommit && b.sha == name
}

func (b Bound) String() string {
	switch b.kind {
	case boundCommit:
		return b.sha
	case boundDate:
		return b.date.Format("2006-01-02")
	default:
		return ""
	}
}

// MarshalJSON encodes the bound in its request form.
func (b Bound) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON decodes the request form of a bound. null and the
// empty string decode to the zero Bound.
func (b *Bound) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Bound{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = ParseBound(s)
	return nil
}
