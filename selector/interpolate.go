// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package selector

import "github.com/chengr4/rustc-perf/database"

// An InterpolatedPoint is a series point with gaps filled in.
type InterpolatedPoint struct {
	ArtifactID   database.ArtifactID
	Value        float64
	Interpolated bool
}

// Interpolate fills the gaps of a scalar series so charts can draw a
// continuous line. A missing value takes the nearest preceding
// observed value; missing values before the first observation take
// the first observed value. The second result reports whether the
// series had any observation at all.
func Interpolate(points []Point[*float64]) ([]InterpolatedPoint, bool) {
	out := make([]InterpolatedPoint, len(points))
	first := -1
	for i, p := range points {
		out[i].ArtifactID = p.ArtifactID
		if p.Value != nil {
			out[i].Value = *p.Value
			if first < 0 {
				first = i
			}
		} else {
			out[i].Interpolated = true
		}
	}
	if first < 0 {
		return out, false
	}
	for i := 0; i < first; i++ {
		out[i].Value = out[first].Value
	}
	for i := first + 1; i < len(out); i++ {
		if out[i].Interpolated {
			out[i].Value = out[i-1].Value
		}
	}
	return out, true
}
