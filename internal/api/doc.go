// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package api holds the HTTP plumbing shared by the risk, weather and
// sentiment services: the JSON response envelope, the Chi middleware
// stack (request IDs, CORS, rate limiting, metrics, panic recovery),
// health probes and request decoding.
//
// Each service builds its router with NewRouter and mounts its own routes:
//
//	r := api.NewRouter(mw, health)
//	r.With(mw.RateLimit()).Post("/predict", h.Predict)
//
// Every router exposes:
//
//	GET /api/v1/health/live   liveness probe
//	GET /api/v1/health/ready  readiness probe (runs registered checks)
//	GET /metrics              Prometheus exposition
package api
