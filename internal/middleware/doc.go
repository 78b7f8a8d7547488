// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package middleware provides the instrumentation middleware installed on
// every service router: Prometheus request metrics and zerolog access logs.
//
// Both are Chi-style func(http.Handler) http.Handler and read the matched
// route pattern after the request is served, so /patients/search?name=x
// and /patients/search?name=y share one metric series.
package middleware
