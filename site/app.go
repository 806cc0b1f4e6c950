// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/comparison"
	"github.com/chengr4/rustc-perf/database"
)

// App manages the site server logic. Construct an App instance with
// a Ctxt and call RegisterOnMux to connect it with an HTTP server.
type App struct {
	Ctxt *Ctxt
}

// RegisterOnMux registers the app's URLs on mux.
func (a *App) RegisterOnMux(mux *http.ServeMux) {
	mux.HandleFunc("/perf/compare", a.compare)
	mux.HandleFunc("/perf/triage", a.triage)
	mux.HandleFunc("/perf/graphs", a.graphs)
	mux.HandleFunc("/perf/self-profile", a.selfProfile)
	mux.HandleFunc("/perf/dashboard", a.dashboard)
	mux.HandleFunc("/perf/download", a.download)
	mux.HandleFunc("/dashboard.html", a.dashboardHTML)
}

// requestContext returns the Context object for a request.
func requestContext(r *http.Request) context.Context {
	return r.Context()
}

func errorf(ctx context.Context, format string, args ...interface{}) {
	log.Printf(format, args...)
}

// decodeRequest decodes a JSON POST body into req. It writes the
// error response itself and reports whether the handler may proceed.
func decodeRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, r.URL.Path+" must be called as a POST request", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), 400)
		return false
	}
	return true
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), 500)
	}
}

// compare is the handler for the /perf/compare endpoint. It compares
// the measurements at the two ends of the requested range.
func (a *App) compare(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	var req compareRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	stat := database.Metric(req.Stat)
	if stat == "" {
		stat = defaultStat
	}

	master, err := a.Ctxt.Commits(ctx)
	if err != nil {
		errorf(ctx, "fetching master commits: %v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	resp, err := comparison.HandleCompare(ctx, a.Ctxt, req.Start, req.End, stat, master)
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, resp)
}

// triage is the handler for the /perf/triage endpoint. It walks the
// requested range one comparison at a time and responds with the
// rendered markdown report.
func (a *App) triage(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	var req triageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	master, err := a.Ctxt.Commits(ctx)
	if err != nil {
		errorf(ctx, "fetching master commits: %v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	report, err := comparison.Triage(ctx, a.Ctxt, a.Ctxt.GitHub, req.Start, req.End, master)
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, report)
}

// download is the handler for the /perf/download endpoint. It
// streams one raw archive from the archive store.
func (a *App) download(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	name := r.Form.Get("name")
	if name == "" {
		http.Error(w, "missing name parameter", 400)
		return
	}
	if a.Ctxt.Archive == nil {
		http.Error(w, "no archive store configured", 404)
		return
	}

	rc, err := a.Ctxt.Archive.Open(ctx, name)
	if err != nil {
		http.Error(w, err.Error(), 404)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		errorf(ctx, "streaming %s: %v", name, err)
	}
}
