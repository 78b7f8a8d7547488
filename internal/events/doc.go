// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

/*
Package events publishes prediction events to NATS through Watermill.

Each successful prediction produces an EventEnvelope (see internal/models)
published as JSON on the subject "{prefix}.{type}", for example
"sibyl.risk.predicted". Publishing uses core NATS; JetStream is not
required.

Publishing is best effort: services log a failed Publish and still answer
the request. A circuit breaker stops publish attempts while the broker is
unreachable.

For single-binary deployments, EmbeddedServer runs an in-process
nats-server that the publisher can connect to.

	srv, _ := events.NewEmbeddedServer(events.ServerConfig{Host: "127.0.0.1", Port: 4222})
	pub, _ := events.NewNATSPublisher(events.PublisherConfig{URL: srv.ClientURL(), SubjectPrefix: "sibyl"}, nil)
	_ = pub.Publish(ctx, "risk", models.EventRiskPredicted, payload)
*/
package events
