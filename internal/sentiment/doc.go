// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package sentiment trains and serves a three-class (positive, negative,
// neutral) classifier for short Indonesian texts.
//
// Train runs once at startup: it loads the labeled dataset (.xlsx or
// .csv with Tweet and Label columns), cleans every text, splits 60/20/20,
// fits the tokenizer vocabulary on the training split, pads to a fixed
// length and fits an embedding + recurrent + softmax network. The trained
// Classifier is immutable; Predict applies the same cleaning, tokenizing
// and padding to a single text.
package sentiment
