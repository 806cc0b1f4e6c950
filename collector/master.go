// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/context"
)

// MasterCommitsURL is the endpoint serving the list of merged master
// commits. Tests may point it at a fake server.
var MasterCommitsURL = "https://triage.rust-lang.org/bors-commit-list"

// A MasterCommit is one entry of the merged commit list: a commit of
// the tracked repository's main branch together with its parent and,
// when known, the pull request merged as this commit.
type MasterCommit struct {
	Sha       string    `json:"sha"`
	ParentSha string    `json:"parent_sha"`
	PR        uint32    `json:"pr"`
	Time      time.Time `json:"time"`
}

// MasterCommits fetches the full merged commit list. The caller is
// expected to cache the result for the duration of a request; the
// list is large and changes only when a new commit lands.
func MasterCommits(ctx context.Context) ([]MasterCommit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, MasterCommitsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch master commits: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch master commits: %v", resp.Status)
	}
	var commits []MasterCommit
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return nil, fmt.Errorf("decode master commits: %v", err)
	}
	return commits, nil
}

// FindMaster returns the master commit with the given sha, or nil.
func FindMaster(commits []MasterCommit, sha string) *MasterCommit {
	for i := range commits {
		if commits[i].Sha == sha {
			return &commits[i]
		}
	}
	return nil
}

// FindChild returns the master commit whose parent is the given sha,
// or nil. Because history is linear, the child is unique.
func FindChild(commits []MasterCommit, sha string) *MasterCommit {
	for i := range commits {
		if commits[i].ParentSha == sha {
			return &commits[i]
		}
	}
	return nil
}
