// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart renders benchmark history charts as PNG images.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// A Series is one line of a chart: a label and one value per commit
// of the charted range.
type Series struct {
	Label  string
	Values plotter.Values
}

// palette cycles through the line colors.
var palette = []color.Color{
	color.NRGBA{0xFF, 0, 0, 0xFF},
	color.NRGBA{0, 0, 0xFF, 0xFF},
	color.NRGBA{0, 0x99, 0, 0xFF},
	color.NRGBA{0x99, 0, 0xFF, 0xFF},
	color.NRGBA{0xFF, 0x66, 0, 0xFF},
	color.NRGBA{0, 0x99, 0x99, 0xFF},
}

// Render draws every series across the commits, one x tick per
// commit, and writes the chart to w as a PNG. Every series must have
// exactly one value per commit.
func Render(w io.Writer, title string, commits []string, series []Series) error {
	if len(commits) == 0 {
		return fmt.Errorf("chart %q has no commits", title)
	}

	pl := plot.New()
	pl.Title.Text = title

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	for i, s := range series {
		if len(s.Values) != len(commits) {
			return fmt.Errorf("series %s has %d values for %d commits", s.Label, len(s.Values), len(commits))
		}
		xys := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			xys[j].X = float64(j)
			xys[j].Y = v
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		c := palette[i%len(palette)]
		line.Color = c
		line.Width = vg.Points(1)
		points.Color = c
		points.Radius = vg.Points(2)
		pl.Add(line, points)
		pl.Legend.Add(s.Label, line, points)
	}
	pl.Legend.Top = true
	pl.NominalX(commits...)

	pl.X.Tick.Label.Rotation = -math.Pi / 8
	pl.X.Tick.Label.YAlign = draw.YTop
	pl.X.Tick.Label.XAlign = draw.XLeft

	// Heuristic width and height.
	width := 1.5 * float64(2+len(commits))
	height := width / 3
	if height < 5 {
		height = 5
	}
	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(
		vgimg.UseWH(vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter),
		vgimg.UseDPI(150),
		vgimg.UseBackgroundColor(color.White),
	)}
	pl.Draw(draw.New(can))
	_, err := can.WriteTo(w)
	return err
}
