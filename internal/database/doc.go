// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package database stores heart-risk prediction history in DuckDB.
//
// The store is optional: the risk service only opens it when
// database.path is configured. Use ":memory:" for tests.
//
//   - database.go: connection lifecycle, pool settings and context timeouts
//   - schema.go: table and index creation
//   - patients.go: insert, list (newest first) and case-insensitive search
//
// Every query records its latency and failures in the duckdb_query_* metrics.
package database
