// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package ml contains the small numeric toolkit shared by the prediction
// services: a standard scaler, seeded dataset splits and evaluation
// metrics. Model families live in subpackages:
//
//   - gbm: gradient-boosted regression and binary classification trees
//   - text: text cleaning, a vocabulary tokenizer and sequence padding
//   - rnn: an embedding + recurrent + softmax sequence classifier
//
// Everything here is deterministic for a fixed seed and free of global
// state, so fitted values can be shared read-only across goroutines.
package ml
