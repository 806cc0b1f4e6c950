// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPRTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/rust-lang/rust/pulls/1234" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"title": "Improve the thing", "number": 1234}`)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, http: http.DefaultClient}
	if got := c.PRTitle(context.Background(), 1234); got != "Improve the thing" {
		t.Errorf("PRTitle = %q, want %q", got, "Improve the thing")
	}
}

func TestPRTitleDegrades(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/rust-lang/rust/pulls/1":
			http.Error(w, "not found", http.StatusNotFound)
		default:
			fmt.Fprint(w, `{"number": 2}`)
		}
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, http: http.DefaultClient}
	if got := c.PRTitle(context.Background(), 1); got != "<UNKNOWN>" {
		t.Errorf("PRTitle on 404 = %q, want <UNKNOWN>", got)
	}
	if got := c.PRTitle(context.Background(), 2); got != "<UNKNOWN>" {
		t.Errorf("PRTitle on malformed body = %q, want <UNKNOWN>", got)
	}
}
