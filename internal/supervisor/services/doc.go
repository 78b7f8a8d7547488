// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

/*
Package services adapts Sibyl components to suture.Service.

  - HTTPServerService wraps an *http.Server with graceful shutdown.
  - JobService runs a one-shot function, retrying failures up to a limit,
    then returns suture.ErrDoNotRestart.
  - NATSServerService ties an embedded NATS server's lifetime to the tree.

Every wrapper implements fmt.Stringer so suture logs a readable name.
*/
package services
