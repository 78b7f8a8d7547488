// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package plotcheck is a smoke test for the plotting stack: it reports
// the linked library versions and draws one small line chart.
package plotcheck

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultOutput is the file written when no path is given.
const DefaultOutput = "test_plot.png"

// Title of the smoke-test chart.
const Title = "Test Plot"

// TrackedModules are the libraries whose versions are reported.
var TrackedModules = []string{
	"gonum.org/v1/plot",
	"github.com/xuri/excelize/v2",
	"gonum.org/v1/gonum",
}

// ModuleVersion is one reported dependency. Version is empty when the
// module is not in the build info.
type ModuleVersion struct {
	Path    string
	Version string
}

// Versions is the report printed by Run.
type Versions struct {
	Go      string
	Modules []ModuleVersion
}

// CollectVersions reads the Go version and TrackedModules from the
// binary's build info.
func CollectVersions() Versions {
	v := Versions{Go: runtime.Version()}
	deps := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, d := range info.Deps {
			if d.Replace != nil {
				d = d.Replace
			}
			deps[d.Path] = d.Version
		}
	}
	for _, path := range TrackedModules {
		v.Modules = append(v.Modules, ModuleVersion{Path: path, Version: deps[path]})
	}
	return v
}

// WriteTo prints the report, one line per entry.
func (v Versions) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := fmt.Fprintf(w, "go: %s\n", v.Go)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, m := range v.Modules {
		version := m.Version
		if version == "" {
			version = "(not in build info)"
		}
		n, err = fmt.Fprintf(w, "%s: %s\n", m.Path, version)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Draw saves the x=[1,2,3], y=[4,5,6] line chart to path. The image
// format follows the file extension.
func Draw(path string) error {
	if path == "" {
		return errors.New("plotcheck: output path is empty")
	}
	p := plot.New()
	p.Title.Text = Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	line, err := plotter.NewLine(plotter.XYs{{X: 1, Y: 4}, {X: 2, Y: 5}, {X: 3, Y: 6}})
	if err != nil {
		return fmt.Errorf("plotcheck: line: %w", err)
	}
	p.Add(line)

	if err := p.Save(4*vg.Inch, 3*vg.Inch, path); err != nil {
		return fmt.Errorf("plotcheck: save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Run prints the versions to w and draws the chart to outPath.
func Run(w io.Writer, outPath string) error {
	if outPath == "" {
		outPath = DefaultOutput
	}
	if _, err := CollectVersions().WriteTo(w); err != nil {
		return err
	}
	if err := Draw(outPath); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "saved %s\n", outPath)
	return err
}
