// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package github fetches pull request metadata from the GitHub API.
package github

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"golang.org/x/net/context"
	"golang.org/x/oauth2"
)

// unknownTitle stands in for a pull request title that could not be
// fetched. Report generation degrades rather than failing.
const unknownTitle = "<UNKNOWN>"

// A Client fetches pull request metadata for the tracked repository.
type Client struct {
	// BaseURL is the GitHub API root. Tests may point it at a fake
	// server.
	BaseURL string

	http *http.Client
}

// NewClient returns a Client, authenticated when GITHUB_TOKEN is set
// in the environment. Unauthenticated clients work but are rate
// limited aggressively.
func NewClient(ctx context.Context) *Client {
	hc := http.DefaultClient
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	}
	return &Client{BaseURL: "https://api.github.com", http: hc}
}

// PRTitle returns the title of the pull request, or a placeholder if
// the fetch fails for any reason.
func (c *Client) PRTitle(ctx context.Context, pr uint32) string {
	url := fmt.Sprintf("%s/repos/rust-lang/rust/pulls/%d", c.BaseURL, pr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("fetching %s: %v", url, err)
		return unknownTitle
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "rustc-perf")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("fetching %s: %v", url, err)
		return unknownTitle
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("fetching %s: %v", url, resp.Status)
		return unknownTitle
	}

	var payload struct {
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Title == nil {
		log.Printf("fetching %s: malformed response", url)
		return unknownTitle
	}
	return *payload.Title
}
