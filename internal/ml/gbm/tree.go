// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package gbm

import (
	"math"
	"sort"
)

// Node is one node of a regression tree stored in a flat slice. Leaves
// have Leaf set and carry Value; internal nodes route x[Feature] <
// Threshold to Left and everything else (including NaN) to Right.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// Tree is a single regression tree. Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows one tree from gradient statistics.
type treeBuilder struct {
	x        [][]float64
	grad     []float64
	hess     []float64
	features []int
	params   *Params
	nodes    []Node
}

// softThreshold applies the L1 shrinkage T_alpha(g).
func softThreshold(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func (b *treeBuilder) leafWeight(g, h float64) float64 {
	return -softThreshold(g, b.params.Alpha) / (h + b.params.Lambda)
}

func (b *treeBuilder) score(g, h float64) float64 {
	t := softThreshold(g, b.params.Alpha)
	return t * t / (h + b.params.Lambda)
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return Tree{Nodes: append([]Node(nil), b.nodes...)}
}

// grow appends the subtree for rows and returns its node index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	var g, h float64
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Value: b.leafWeight(g, h)})

	if depth >= b.params.MaxDepth || len(rows) < 2 {
		return idx
	}

	feature, threshold, ok := b.bestSplit(rows, g, h)
	if !ok {
		return idx
	}

	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if b.x[r][feature] < threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	rt := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: rt}
	return idx
}

// bestSplit scans every candidate feature with the exact greedy
// algorithm. Missing values (NaN) always go right.
func (b *treeBuilder) bestSplit(rows []int, g, h float64) (feature int, threshold float64, ok bool) {
	parent := b.score(g, h)
	bestGain := 0.0
	sorted := make([]int, 0, len(rows))

	for _, f := range b.features {
		sorted = sorted[:0]
		for _, r := range rows {
			if !math.IsNaN(b.x[r][f]) {
				sorted = append(sorted, r)
			}
		}
		if len(sorted) < 2 {
			continue
		}
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		var gl, hl float64
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			gl += b.grad[r]
			hl += b.hess[r]

			v, next := b.x[r][f], b.x[sorted[i+1]][f]
			if v == next {
				continue
			}
			gr, hr := g-gl, h-hl
			if hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}

			gain := 0.5*(b.score(gl, hl)+b.score(gr, hr)-parent) - b.params.Gamma
			if gain > bestGain {
				bestGain = gain
				feature = f
				threshold = v + (next-v)/2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
