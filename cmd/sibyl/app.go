// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sibyl/internal/api"
	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/database"
	"github.com/tomtom215/sibyl/internal/events"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/risk"
	"github.com/tomtom215/sibyl/internal/sentiment"
	"github.com/tomtom215/sibyl/internal/weather"
)

// Service names accepted by "sibyl serve".
const (
	serviceRisk      = "risk"
	serviceWeather   = "weather"
	serviceSentiment = "sentiment"
)

var allServices = []string{serviceRisk, serviceWeather, serviceSentiment}

// application holds the infrastructure shared by the services running in
// one process. Each service still owns its own model state.
type application struct {
	cfg       *config.Config
	db        *database.DB
	publisher events.Publisher
	natsSrv   *events.EmbeddedServer

	closers []io.Closer
}

// newApplication opens the optional database and event publisher.
// withDB is false for services that never touch patient history.
func newApplication(cfg *config.Config, withDB bool) (*application, error) {
	app := &application{cfg: cfg, publisher: events.Noop{}}

	if withDB && cfg.Database.Enabled() {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
		app.closers = append(app.closers, db)
	}

	if cfg.NATS.Enabled {
		url := ""
		if cfg.NATS.EmbeddedServer {
			srv, err := events.NewEmbeddedServer(events.ServerConfig{Port: cfg.NATS.EmbeddedPort})
			if err != nil {
				app.Close()
				return nil, fmt.Errorf("failed to start embedded NATS server: %w", err)
			}
			app.natsSrv = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}
		pub, err := events.NewNATSPublisher(events.PublisherConfigFrom(cfg.NATS, url), logging.NewWatermillAdapter())
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		app.publisher = pub
		// Closed before the embedded server shuts down via the tree.
		app.closers = append([]io.Closer{pub}, app.closers...)
		logging.Info().Str("prefix", cfg.NATS.SubjectPrefix).Msg("Prediction events enabled")
	}
	return app, nil
}

// Close releases the database and publisher. The embedded NATS server is
// owned by the supervisor tree once serving starts.
func (a *application) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing resource")
		}
	}
	a.closers = nil
}

// shutdownNATS stops an embedded server that was never handed to the tree.
func (a *application) shutdownNATS() {
	if a.natsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.natsSrv.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS shutdown failed")
	}
}

func (a *application) newRouter(service string) (chi.Router, *api.ChiMiddleware, *api.HealthHandler) {
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(service, a.cfg.Security))
	health := api.NewHealthHandler(service)
	return api.NewRouter(mw, health), mw, health
}

func (a *application) newHTTPServer(port int, handler http.Handler) *http.Server {
	s := a.cfg.Server
	return &http.Server{
		Addr:              s.Addr(port),
		Handler:           handler,
		ReadTimeout:       s.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// riskRouter loads the persisted artifacts; a missing or corrupt
// artifact fails startup.
func (a *application) riskRouter() (http.Handler, error) {
	model, err := risk.LoadModel(a.cfg.Risk.ModelPath, a.cfg.Risk.ScalerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk model: %w", err)
	}
	logging.Info().
		Str("model", a.cfg.Risk.ModelPath).
		Str("scaler", a.cfg.Risk.ScalerPath).
		Msg("Risk model loaded")

	r, mw, health := a.newRouter(serviceRisk)

	var store risk.PatientStore
	if a.db != nil {
		store = a.db
		health.AddCheck("database", a.db.Ping)
	}
	h := risk.NewHandler(model, store, a.publisher)
	health.AddCheck("model", h.Ready)
	h.Register(r, mw)
	return r, nil
}

// weatherRouter returns the router and the feed cache, which the caller
// closes on shutdown.
func (a *application) weatherRouter() (http.Handler, weather.FeedCache, error) {
	wc := a.cfg.Weather
	cache, err := weather.NewFeedCache(wc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open weather cache: %w", err)
	}
	svc := weather.NewService(weather.NewClient(weather.ClientConfigFrom(wc)), cache, a.publisher, weather.Options{
		Cities:        wc.Cities,
		MaxDays:       wc.MaxDays,
		DefaultAPIKey: wc.APIKey,
		Seed:          wc.Seed,
	})
	logging.Info().
		Str("cache", cache.Backend()).
		Bool("default_key", svc.HasDefaultKey()).
		Strs("cities", wc.Cities).
		Msg("Weather service configured")

	r, mw, _ := a.newRouter(serviceWeather)
	weather.NewHandler(svc).Register(r, mw)
	return r, cache, nil
}

// sentimentRouter returns the router and a training job. The handler
// answers 503 until train installs the classifier.
func (a *application) sentimentRouter() (http.Handler, func(context.Context) error, error) {
	opts, err := sentiment.OptionsFrom(a.cfg.Sentiment)
	if err != nil {
		return nil, nil, err
	}
	h := sentiment.NewHandler(nil, nil, a.publisher)
	r, mw, health := a.newRouter(serviceSentiment)
	health.AddCheck("classifier", h.Ready)
	h.Register(r, mw)

	sc := a.cfg.Sentiment
	train := func(ctx context.Context) error {
		ds, err := sentiment.LoadDataset(sc.DatasetPath, sc.SheetName)
		if err != nil {
			return err
		}
		logging.Info().
			Str("path", sc.DatasetPath).
			Int("rows", ds.Len()).
			Int("skipped", ds.Skipped).
			Msg("Sentiment dataset loaded")

		c, report, err := sentiment.Train(ctx, ds, opts)
		if err != nil {
			return err
		}
		h.SetClassifier(c, report)
		return nil
	}
	return r, train, nil
}

// errUnknownService is returned for a serve target that does not exist.
var errUnknownService = errors.New("unknown service")

func (a *application) port(service string) int {
	switch service {
	case serviceRisk:
		return a.cfg.Server.RiskPort
	case serviceWeather:
		return a.cfg.Server.WeatherPort
	default:
		return a.cfg.Server.SentimentPort
	}
}
