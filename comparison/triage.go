// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comparison

import (
	"bytes"
	"fmt"
	"log"
	"text/template"
	"time"

	"golang.org/x/net/context"

	"github.com/chengr4/rustc-perf/collector"
	"github.com/chengr4/rustc-perf/github"
	"github.com/chengr4/rustc-perf/selector"
)

// triageStat is the metric the triage report is built from.
const triageStat = "instructions:u"

// Triage walks the commit chain from start to end one step at a time,
// comparing each commit against its parent, and renders the triage
// report of every significant change found.
//
// The end bound is resolved to an artifact before the walk begins, so
// a date or missing end terminates the walk exactly like a commit
// bound would. An unspecified end walks to the tip of the chain.
func Triage(ctx context.Context, src selector.Source, gh *github.Client, start, end collector.Bound, master []collector.MasterCommit) (string, error) {
	// Compare start against itself to find the first step.
	first, err := Compare(ctx, src, start, start, triageStat, master)
	if err != nil {
		return "", err
	}
	next, ok := first.Next(master)
	if !ok {
		return "", fmt.Errorf("no commit follows %s", first.B.Commit)
	}

	endSha := ""
	if !end.IsNone() {
		resolved, ok := selector.ArtifactIDForBound(src.Index(), end, false)
		if !ok {
			return "", fmt.Errorf("could not find end commit for bound %v", end)
		}
		endSha = resolved.Name()
	}

	report := make(map[Direction][]string)
	before := start
	after := collector.CommitBound(next)
	for {
		c, err := Compare(ctx, src, before, after, triageStat, master)
		if err != nil {
			return "", err
		}
		log.Printf("comparing %s to %s", c.B.Commit, c.A.Commit)

		populateReport(ctx, gh, c, report)

		next, ok := c.Next(master)
		if !ok || c.B.Commit == endSha {
			break
		}
		before = after
		after = collector.CommitBound(next)
	}

	endLabel := fmtBound(end)
	if end.IsNone() {
		endLabel = after.String()
	}
	date := time.Now().UTC().Format("2006-01-02")
	return renderReport(date, fmtBound(start), endLabel, report), nil
}

// populateReport adds the comparison's summary, if it has significant
// changes, to the section for its direction.
func populateReport(ctx context.Context, gh *github.Client, c *Comparison, report map[Direction][]string) {
	summary := summarizeComparison(c)
	if summary == nil {
		return
	}
	direction, ok := summary.direction()
	if !ok {
		return
	}
	report[direction] = append(report[direction], summary.write(ctx, gh, c))
}

func fmtBound(b collector.Bound) string {
	if s := b.String(); s != "" {
		return s
	}
	return "???"
}

var reportTmpl = template.Must(template.New("triage").Parse(`# {{.Date}} Triage Log

TODO: Summary

Triage done by **@???**.
Revision range: [{{.First}}..{{.Last}}](https://perf.rust-lang.org/?start={{.First}}&end={{.Last}}&absolute=false&stat=instructions%3Au)

{{.NumRegressions}} Regressions, {{.NumImprovements}} Improvements, {{.NumMixed}} Mixed
??? of them in rollups

#### Regressions

{{.Regressions}}

#### Improvements

{{.Improvements}}

#### Mixed

{{.Mixed}}

#### Nags requiring follow up

TODO: Nags

`))

// renderReport fills in the triage log template. Entries within a
// section are separated by blank lines.
func renderReport(date, first, last string, report map[Direction][]string) string {
	join := func(entries []string) string {
		out := ""
		for i, e := range entries {
			if i > 0 {
				out += "\n\n"
			}
			out += e
		}
		return out
	}
	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, map[string]interface{}{
		"Date":            date,
		"First":           first,
		"Last":            last,
		"NumRegressions":  len(report[Regression]),
		"NumImprovements": len(report[Improvement]),
		"NumMixed":        len(report[Mixed]),
		"Regressions":     join(report[Regression]),
		"Improvements":    join(report[Improvement]),
		"Mixed":           join(report[Mixed]),
	})
	if err != nil {
		// The template and its data are fixed at compile time.
		panic(err)
	}
	return buf.String()
}
