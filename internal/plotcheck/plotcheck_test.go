// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package plotcheck

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCollectVersions(t *testing.T) {
	t.Parallel()

	v := CollectVersions()
	if v.Go != runtime.Version() {
		t.Errorf("Go = %q, want %q", v.Go, runtime.Version())
	}
	if len(v.Modules) != len(TrackedModules) {
		t.Fatalf("modules = %d, want %d", len(v.Modules), len(TrackedModules))
	}
	for i, m := range v.Modules {
		if m.Path != TrackedModules[i] {
			t.Errorf("module %d = %q", i, m.Path)
		}
	}
}

func TestVersionsWriteTo(t *testing.T) {
	t.Parallel()

	v := Versions{Go: "go1.25.5", Modules: []ModuleVersion{
		{Path: "gonum.org/v1/plot", Version: "v0.15.2"},
		{Path: "github.com/xuri/excelize/v2"},
	}}
	var buf bytes.Buffer
	n, err := v.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want := "go: go1.25.5\ngonum.org/v1/plot: v0.15.2\ngithub.com/xuri/excelize/v2: (not in build info)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if n != int64(len(want)) {
		t.Errorf("n = %d, want %d", n, len(want))
	}
}

func TestRunDrawsPNG(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "test_plot.png")
	var buf bytes.Buffer
	if err := Run(&buf, out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "go: ") || !strings.Contains(buf.String(), "saved "+out) {
		t.Errorf("output = %q", buf.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Errorf("empty image %v", b)
	}
}

func TestDrawErrors(t *testing.T) {
	t.Parallel()

	if err := Draw(""); err == nil {
		t.Error("Draw(\"\") should fail")
	}
	if err := Draw(filepath.Join(t.TempDir(), "missing", "plot.png")); err == nil {
		t.Error("Draw into a missing directory should fail")
	}
	if err := Draw(filepath.Join(t.TempDir(), "plot.unknown")); err == nil {
		t.Error("Draw with an unknown extension should fail")
	}
}
