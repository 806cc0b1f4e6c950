// Copyright 2021 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/plot/plotter"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{
		{Label: "check full", Values: plotter.Values{100, 110, 110}},
		{Label: "opt full", Values: plotter.Values{200, 210, 220}},
	}
	if err := Render(&buf, "syn (instructions:u)", []string{"aaaa", "bbbb", "cccc"}, series); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Errorf("%d bytes of output do not start with a PNG header", buf.Len())
	}
}

func TestRenderLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{{Label: "check full", Values: plotter.Values{100, 110}}}
	err := Render(&buf, "syn", []string{"aaaa", "bbbb", "cccc"}, series)
	if err == nil || !strings.Contains(err.Error(), "2 values for 3 commits") {
		t.Errorf("Render returned %v, want a length mismatch error", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Render wrote %d bytes despite the error", buf.Len())
	}
}

func TestRenderNoCommits(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "syn", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "no commits") {
		t.Errorf("Render returned %v, want a no commits error", err)
	}
}
