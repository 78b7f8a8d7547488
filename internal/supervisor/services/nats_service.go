// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"
)

// NATSServer matches *events.EmbeddedServer.
type NATSServer interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// NATSServerService keeps an already-started embedded NATS server alive
// for the lifetime of the tree and shuts it down on cancellation. The
// server cannot be restarted in place, so a stopped server ends the
// service with suture.ErrDoNotRestart.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService creates the wrapper. A non-positive timeout means 10s.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-embedded",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return suture.ErrDoNotRestart
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(ctx.Err(), err)
	}
	return ctx.Err()
}

func (s *NATSServerService) String() string {
	return s.name
}
