// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

/*
Package supervisor runs the long-lived parts of Sibyl under suture v4.

The tree has three layers so that a failure in one does not take down
the others:

	RootSupervisor ("sibyl")
	├── MessagingSupervisor ("messaging-layer")
	│   └── embedded NATS server (nats.embedded_server)
	├── JobSupervisor ("job-layer")
	│   └── one-shot startup work, e.g. sentiment training
	└── APISupervisor ("api-layer")
	    └── one HTTPServerService per service port

Supervisor events (restarts, backoff, timeouts) are logged through
sutureslog, backed by the zerolog slog adapter in internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService("risk-http", srv, 10*time.Second))
	err = tree.Serve(ctx)

See the services subpackage for the wrappers.
*/
package supervisor
