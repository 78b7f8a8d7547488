// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package logging provides the zerolog-based structured logger shared by
// every Sibyl service and command.
//
// Initialize once from main:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
// then log with chained events:
//
//	logging.Info().Str("service", "risk").Msg("Model loaded")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Feed fetch failed")
//
// Ctx attaches the request_id and correlation_id carried by the context,
// so handler logs can be joined with access logs.
//
// Two adapters bridge zerolog into libraries with their own logging
// interfaces: SlogHandler (log/slog, used by sutureslog) and
// WatermillAdapter (watermill.LoggerAdapter, used by the event publisher).
//
// Always terminate a chain with Msg or Send, otherwise nothing is written.
package logging
