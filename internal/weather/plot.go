// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Chart dimensions of the rendered PNG.
const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 12 * vg.Inch
)

var (
	observedColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

var targetTitles = map[string]struct{ title, unit string }{
	TargetTemp:     {"Max temperature", "°C"},
	TargetHumidity: {"Humidity", "%"},
	TargetWind:     {"Wind speed", "m/s"},
}

func seriesXY(samples []Sample, target string) plotter.XYs {
	xy := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xy[i].X = float64(s.Time.Unix())
		xy[i].Y = targetValue(s, target)
	}
	return xy
}

func targetPlot(fc *Forecast, target string) (*plot.Plot, error) {
	meta := targetTitles[target]
	p := plot.New()
	p.Title.Text = meta.title
	if fc.City != "" {
		p.Title.Text += " - " + fc.City
	}
	p.Y.Label.Text = meta.unit
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 02\n15:04"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	observed, err := plotter.NewLine(seriesXY(fc.Observed, target))
	if err != nil {
		return nil, fmt.Errorf("observed %s line: %w", target, err)
	}
	observed.Color = observedColor
	observed.Width = vg.Points(1.5)

	predicted, err := plotter.NewLine(seriesXY(fc.Predicted, target))
	if err != nil {
		return nil, fmt.Errorf("predicted %s line: %w", target, err)
	}
	predicted.Color = predictedColor
	predicted.Width = vg.Points(1.5)
	predicted.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}

	p.Add(observed, predicted)
	p.Legend.Add("observed", observed)
	p.Legend.Add("predicted", predicted)
	return p, nil
}

// RenderPNG draws one stacked panel per target and returns PNG bytes.
func RenderPNG(fc *Forecast) ([]byte, error) {
	if fc == nil || len(fc.Observed) == 0 || len(fc.Predicted) == 0 {
		return nil, fmt.Errorf("render: %w", ErrEmptyFeed)
	}

	plots := make([][]*plot.Plot, len(Targets))
	for i, target := range Targets {
		p, err := targetPlot(fc, target)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(chartWidth, chartHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(Targets),
		Cols:      1,
		PadTop:    vg.Points(6),
		PadBottom: vg.Points(6),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(12),
		PadY:      vg.Points(14),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderBase64 is RenderPNG encoded for a data: URI.
func RenderBase64(fc *Forecast) (string, error) {
	png, err := RenderPNG(fc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
