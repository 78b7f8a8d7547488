// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/sibyl/internal/breaker"
	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/models"
)

// Publisher emits prediction events. source names the emitting service.
type Publisher interface {
	Publish(ctx context.Context, source, eventType string, payload interface{}) error
	Close() error
}

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Noop discards every event. It is used when NATS is disabled.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, string, string, interface{}) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

// PublisherConfig configures NATSPublisher.
type PublisherConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// PublisherConfigFrom maps the nats config section. url overrides
// cfg.URL when non-empty, which is how an embedded server is wired in.
func PublisherConfigFrom(cfg config.NATSConfig, url string) PublisherConfig {
	if url == "" {
		url = cfg.URL
	}
	return PublisherConfig{
		URL:           url,
		SubjectPrefix: cfg.SubjectPrefix,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectWait: cfg.ReconnectWait,
	}
}

// NATSPublisher publishes JSON envelopes with watermill-nats.
type NATSPublisher struct {
	publisher message.Publisher
	breaker   *breaker.Breaker
	prefix    string
	logger    watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewNATSPublisher connects to cfg.URL. A nil logger uses the zerolog
// adapter.
func NewNATSPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is empty")
	}
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "sibyl"
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("sibyl-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	settings := breaker.DefaultSettings("nats-publisher")
	settings.MinRequests = 5
	settings.Timeout = 30 * time.Second

	return &NATSPublisher{
		publisher: pub,
		breaker:   breaker.New(settings),
		prefix:    cfg.SubjectPrefix,
		logger:    logger,
	}, nil
}

// Subject returns the NATS subject for eventType.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish wraps payload in an EventEnvelope and sends it.
func (p *NATSPublisher) Publish(ctx context.Context, source, eventType string, payload interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	env := models.EventEnvelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		RequestID:  logging.RequestIDFromContext(ctx),
		Payload:    payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		metrics.RecordEventPublish(eventType, err)
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := message.NewMessage(env.ID, data)
	msg.Metadata.Set("type", eventType)
	msg.Metadata.Set("source", source)
	if env.RequestID != "" {
		msg.Metadata.Set("request_id", env.RequestID)
	}
	msg.SetContext(ctx)

	subject := p.Subject(eventType)
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(subject, msg)
	})
	metrics.RecordEventPublish(eventType, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes and closes the NATS connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// Emit publishes and logs any failure instead of returning it, for
// request paths where events must not affect the response.
func Emit(ctx context.Context, pub Publisher, source, eventType string, payload interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, source, eventType, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
