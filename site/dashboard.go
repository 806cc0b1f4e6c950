// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package site

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/google/safehtml/template"
	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/database"
	"github.com/chengr4/rustc-perf/selector"
)

// dashboard is the handler for the /perf/dashboard endpoint: the
// per-profile mean of one statistic across every benchmark, for each
// named artifact and the newest master commit.
func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	stat := database.Metric(r.Form.Get("stat"))
	if stat == "" {
		stat = defaultStat
	}

	resp, err := a.dashboardQuery(ctx, stat)
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, resp)
}

func (a *App) dashboardQuery(ctx context.Context, stat database.Metric) (*dashboardResponse, error) {
	idx := a.Ctxt.Index()

	var artifacts []database.ArtifactID
	for _, name := range idx.Artifacts() {
		artifacts = append(artifacts, database.TagArtifact(name))
	}
	if commits := idx.Commits(); len(commits) > 0 {
		artifacts = append(artifacts, database.CommitArtifact(commits[len(commits)-1]))
	}
	resp := &dashboardResponse{Stat: string(stat)}
	if len(artifacts) == 0 {
		return resp, nil
	}

	q := selector.Query{}.
		Set(selector.TagBenchmark, selector.All[string]()).
		Set(selector.TagProfile, selector.All[string]()).
		Set(selector.TagScenario, selector.All[string]()).
		Set(selector.TagMetric, selector.One(string(stat)))
	series, err := selector.QueryScalar(ctx, a.Ctxt, artifacts, q)
	if err != nil {
		return nil, err
	}

	// One table row per observation, artifact-major so the
	// aggregate's groups come out in artifact order.
	var (
		names    []string
		profiles []string
		values   []float64
	)
	for i, aid := range artifacts {
		for _, sr := range series {
			if sr.Series[i].Value == nil {
				continue
			}
			profile, err := sr.Path.Profile()
			if err != nil {
				return nil, err
			}
			names = append(names, aid.Name())
			profiles = append(profiles, profile.String())
			values = append(values, *sr.Series[i].Value)
		}
	}
	if len(values) == 0 {
		return resp, nil
	}

	tab := new(table.Builder).
		Add("artifact", names).
		Add("profile", profiles).
		Add("value", values).
		Done()
	agged := ggstat.Agg("artifact", "profile")(ggstat.AggMean("value")).F(tab)
	out := agged.Table(table.RootGroupID)

	arts := out.Column("artifact").([]string)
	profs := out.Column("profile").([]string)
	means := out.Column("mean value").([]float64)

	seen := make(map[string]bool)
	rowOf := make(map[string]int)
	for i := range arts {
		if !seen[profs[i]] {
			seen[profs[i]] = true
			resp.Profiles = append(resp.Profiles, profs[i])
		}
		j, ok := rowOf[arts[i]]
		if !ok {
			j = len(resp.Rows)
			rowOf[arts[i]] = j
			resp.Rows = append(resp.Rows, dashboardRow{Artifact: arts[i], Means: make(map[string]float64)})
		}
		resp.Rows[j].Means[profs[i]] = means[i]
	}
	sort.Strings(resp.Profiles)
	return resp, nil
}

var dashTemplate = template.Must(template.New("dashboard").Parse(template.MakeTrustedTemplate(`<!DOCTYPE html>
<title>Dashboard</title>
<table class='dashboard'>
<tr><th>artifact{{range .Profiles}}<th>{{.}}{{end}}
{{range .Rows -}}
<tr><td>{{.Artifact}}{{range .Cells}}<td>{{.}}{{end}}
{{end -}}
</table>
`)))

// dashboardPage is the struct passed to the dashboard template.
type dashboardPage struct {
	Stat     string
	Profiles []string
	Rows     []dashboardPageRow
}

type dashboardPageRow struct {
	Artifact string
	// Cells holds one formatted mean per profile, empty where the
	// artifact was never measured under the profile.
	Cells []string
}

// dashboardHTML is the handler for the /dashboard.html page, the
// HTML rendering of the dashboard table.
func (a *App) dashboardHTML(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	stat := database.Metric(r.Form.Get("stat"))
	if stat == "" {
		stat = defaultStat
	}

	data, err := a.dashboardQuery(ctx, stat)
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	page := dashboardPage{Stat: data.Stat, Profiles: data.Profiles}
	for _, row := range data.Rows {
		pr := dashboardPageRow{Artifact: row.Artifact}
		for _, profile := range data.Profiles {
			cell := ""
			if mean, ok := row.Means[profile]; ok {
				cell = fmt.Sprintf("%.1f", mean)
			}
			pr.Cells = append(pr.Cells, cell)
		}
		page.Rows = append(page.Rows, pr)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashTemplate.Execute(w, page); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
}
