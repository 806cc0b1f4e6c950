// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comparison

import (
	"math"

	"github.com/aclements/go-moremath/stats"
)

// A ChangeSpread summarizes the distribution of log-changes across
// every configuration of a comparison. It gives a quick sense of
// whether a change moved the whole suite or only a few benchmarks.
type ChangeSpread struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
	StdDev float64 `json:"std_dev"`
}

// SummarizeChanges returns the mean log-change of the comparisons
// with its confidence interval at the given level, or nil if fewer
// than two finite changes exist. Configurations missing on one side
// produce non-finite log-changes and are skipped; a single sample
// has no spread.
func SummarizeChanges(benchmarks []*BenchmarkComparison, confidence float64) *ChangeSpread {
	xs := make([]float64, 0, len(benchmarks))
	for _, b := range benchmarks {
		if lc := b.LogChange(); !math.IsNaN(lc) && !math.IsInf(lc, 0) {
			xs = append(xs, lc)
		}
	}
	if len(xs) < 2 {
		return nil
	}
	sample := stats.Sample{Xs: xs}
	mean, lo, hi := sample.MeanCI(confidence)
	return &ChangeSpread{
		N:      len(xs),
		Mean:   mean,
		Lo:     lo,
		Hi:     hi,
		StdDev: sample.StdDev(),
	}
}
