// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// Permutation returns a seeded shuffle of 0..n-1.
func Permutation(n int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible splits, not security
	return rng.Perm(n)
}

// TrainTestSplit shuffles 0..n-1 with seed and returns train and test
// index sets. The test set gets ceil(n*testFraction) rows; both sets are
// non-empty whenever n >= 2.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("split needs at least 2 rows, got %d", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v outside (0, 1)", testFraction)
	}

	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}

	perm := Permutation(n, seed)
	return perm[nTest:], perm[:nTest], nil
}

// ThreeWaySplit splits 0..n-1 into train, validation and test sets by
// first holding out (valFraction+testFraction) and then halving that
// holdout in proportion. Each set is non-empty when n >= 3.
func ThreeWaySplit(n int, valFraction, testFraction float64, seed int64) (train, val, test []int, err error) {
	if n < 3 {
		return nil, nil, nil, fmt.Errorf("three-way split needs at least 3 rows, got %d", n)
	}
	holdFraction := valFraction + testFraction
	train, hold, err := TrainTestSplit(n, holdFraction, seed)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(hold) < 2 {
		// Need one row each for validation and test.
		hold = append(hold, train[len(train)-1])
		train = train[:len(train)-1]
	}

	inner, innerTest, err := TrainTestSplit(len(hold), testFraction/holdFraction, seed)
	if err != nil {
		return nil, nil, nil, err
	}
	val = make([]int, len(inner))
	for i, k := range inner {
		val[i] = hold[k]
	}
	test = make([]int, len(innerTest))
	for i, k := range innerTest {
		test[i] = hold[k]
	}
	return train, val, test, nil
}

// SelectRows returns x[idx[0]], x[idx[1]], ...
func SelectRows[T any](x []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, k := range idx {
		out[i] = x[k]
	}
	return out
}
