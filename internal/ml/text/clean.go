// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package text turns raw short texts into fixed-length integer sequences:
// cleaning, stopword removal, a frequency-ranked vocabulary tokenizer and
// padding.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	digitPattern = regexp.MustCompile(`[0-9]+`)
)

// Cleaner normalizes text before tokenization.
type Cleaner struct {
	stopwords Stopwords
}

// NewCleaner returns a Cleaner that drops the given stopwords. A nil set
// keeps every word.
func NewCleaner(stopwords Stopwords) *Cleaner {
	return &Cleaner{stopwords: stopwords}
}

// Clean lowercases s, strips URLs, digits and ASCII punctuation, splits on
// whitespace and drops stopwords. The words are rejoined with one space.
func (c *Cleaner) Clean(s string) string {
	return strings.Join(c.Words(s), " ")
}

// Words is Clean without the final join.
func (c *Cleaner) Words(s string) []string {
	s = strings.ToLower(s)
	s = urlPattern.ReplaceAllString(s, "")
	s = digitPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if isASCIIPunct(r) {
			return -1
		}
		return r
	}, s)

	fields := strings.Fields(s)
	out := fields[:0]
	for _, w := range fields {
		if c.stopwords.Contains(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// isASCIIPunct reports whether r is one of !"#$%&'()*+,-./:;<=>?@[\]^_`{|}~
// Unicode classes some of these as symbols rather than punctuation.
func isASCIIPunct(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r))
}
