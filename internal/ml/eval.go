// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package ml

import (
	"fmt"
	"math"
	"strings"
)

// Accuracy returns the fraction of positions where pred equals truth.
func Accuracy(truth, pred []int) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}

// ConfusionMatrix returns m where m[t][p] counts rows with truth t and
// prediction p. Labels outside [0, classes) are ignored.
func ConfusionMatrix(truth, pred []int, classes int) [][]int {
	m := make([][]int, classes)
	for i := range m {
		m[i] = make([]int, classes)
	}
	for i := range truth {
		if i >= len(pred) {
			break
		}
		t, p := truth[i], pred[i]
		if t < 0 || t >= classes || p < 0 || p >= classes {
			continue
		}
		m[t][p]++
	}
	return m
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-class precision/recall/F1 summary.
type Report struct {
	Classes  []ClassMetrics
	Accuracy float64
	Total    int
}

// ClassificationReport computes per-class metrics. labels names the
// classes in index order.
func ClassificationReport(truth, pred []int, labels []string) Report {
	cm := ConfusionMatrix(truth, pred, len(labels))
	rep := Report{Accuracy: Accuracy(truth, pred), Total: len(truth)}

	for c, name := range labels {
		tp := cm[c][c]
		var predicted, actual int
		for k := range labels {
			predicted += cm[k][c]
			actual += cm[c][k]
		}
		m := ClassMetrics{Label: name, Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes = append(rep.Classes, m)
	}
	return rep
}

// String renders the report as an aligned text table.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	var macroP, macroR, macroF float64
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
		macroP += c.Precision
		macroR += c.Recall
		macroF += c.F1
	}
	if n := float64(len(r.Classes)); n > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "macro avg", macroP/n, macroR/n, macroF/n, r.Total)
	}
	return b.String()
}

// RMSE returns the root mean squared error, or NaN for empty or
// mismatched input.
func RMSE(truth, pred []float64) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return math.NaN()
	}
	var sum float64
	for i := range truth {
		d := truth[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth)))
}
