// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package selector

import (
	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/database"
)

// ArtifactIDForBound resolves a bound against the index: the first
// (isLeft) or last matching commit, and otherwise a named artifact
// the bound matches exactly.
func ArtifactIDForBound(idx *database.Index, bound collector.Bound, isLeft bool) (database.ArtifactID, bool) {
	commits := idx.Commits()
	if isLeft {
		for _, c := range commits {
			if bound.LeftMatch(c) {
				return database.CommitArtifact(c), true
			}
		}
	} else {
		for i := len(commits) - 1; i >= 0; i-- {
			if bound.LeftMatch(commits[i]) {
				return database.CommitArtifact(commits[i]), true
			}
		}
	}
	for _, name := range idx.Artifacts() {
		if bound.MatchesTag(name) {
			return database.TagArtifact(name), true
		}
	}
	return database.ArtifactID{}, false
}

// RangeSubset returns the commits from the first match of a through
// the last match of b, inclusive. If either side has no match, or
// they cross, the range is empty.
func RangeSubset(commits []database.Commit, a, b collector.Bound) []database.Commit {
	left := -1
	for i := range commits {
		if a.LeftMatch(commits[i]) {
			left = i
			break
		}
	}
	right := -1
	for i := len(commits) - 1; i >= 0; i-- {
		if b.LeftMatch(commits[i]) {
			right = i
			break
		}
	}
	if left < 0 || right < 0 || right < left {
		return nil
	}
	return append([]database.Commit(nil), commits[left:right+1]...)
}
