// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package text

import (
	"sort"
	"strings"
)

// OOVToken stands in for words outside the vocabulary.
const OOVToken = "<OOV>"

// Index 0 is reserved for padding and index 1 for OOVToken; real words
// start at 2.
const (
	PadIndex   = 0
	OOVIndex   = 1
	firstIndex = 2
)

// Tokenizer maps words to integer ids ranked by training frequency.
// Only ids below NumWords are emitted; rarer words map to OOVIndex.
type Tokenizer struct {
	NumWords  int            `json:"num_words"`
	WordIndex map[string]int `json:"word_index"`
}

// NewTokenizer returns an unfitted tokenizer keeping numWords ids
// (including the padding and OOV ids).
func NewTokenizer(numWords int) *Tokenizer {
	return &Tokenizer{NumWords: numWords, WordIndex: map[string]int{OOVToken: OOVIndex}}
}

// Fit builds the vocabulary from space-separated cleaned texts. Ties in
// frequency keep first-seen order.
func (t *Tokenizer) Fit(texts []string) {
	counts := make(map[string]int)
	var order []string
	for _, s := range texts {
		for _, w := range strings.Fields(s) {
			if _, seen := counts[w]; !seen {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	t.WordIndex = make(map[string]int, len(order)+1)
	t.WordIndex[OOVToken] = OOVIndex
	next := firstIndex
	for _, w := range order {
		if w == OOVToken {
			continue
		}
		t.WordIndex[w] = next
		next++
	}
}

// VocabSize returns the width of the id space emitted by Sequence, which
// is what an embedding table must cover.
func (t *Tokenizer) VocabSize() int {
	n := len(t.WordIndex) + 1 // padding id
	if t.NumWords > 0 && t.NumWords < n {
		return t.NumWords
	}
	return n
}

// Sequence converts one cleaned text to ids.
func (t *Tokenizer) Sequence(s string) []int {
	words := strings.Fields(s)
	seq := make([]int, 0, len(words))
	for _, w := range words {
		id, ok := t.WordIndex[w]
		if ok && (t.NumWords <= 0 || id < t.NumWords) {
			seq = append(seq, id)
			continue
		}
		seq = append(seq, OOVIndex)
	}
	return seq
}

// Sequences converts every text.
func (t *Tokenizer) Sequences(texts []string) [][]int {
	out := make([][]int, len(texts))
	for i, s := range texts {
		out[i] = t.Sequence(s)
	}
	return out
}

// Pad returns seq fitted to maxLen: longer sequences keep their last
// maxLen ids and shorter ones are followed by PadIndex.
func Pad(seq []int, maxLen int) []int {
	out := make([]int, maxLen)
	if len(seq) > maxLen {
		seq = seq[len(seq)-maxLen:]
	}
	copy(out, seq)
	return out
}

// PadAll pads every sequence.
func PadAll(seqs [][]int, maxLen int) [][]int {
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		out[i] = Pad(s, maxLen)
	}
	return out
}
