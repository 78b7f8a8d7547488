// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/sibyl/internal/logging"
)

// JobFunc is a unit of one-shot work.
type JobFunc func(ctx context.Context) error

// JobService runs a JobFunc once. A failed run is returned to suture so it
// is retried with backoff; after maxAttempts failures the job gives up.
// Either way the service ends with suture.ErrDoNotRestart.
type JobService struct {
	name        string
	run         JobFunc
	maxAttempts int32
	attempts    atomic.Int32
	done        chan struct{}
	closed      atomic.Bool
	lastErr     atomic.Pointer[error]
}

// NewJobService creates a job. maxAttempts below 1 means 1.
func NewJobService(name string, maxAttempts int, run JobFunc) *JobService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &JobService{
		name:        name,
		run:         run,
		maxAttempts: int32(maxAttempts),
		done:        make(chan struct{}),
	}
}

// Serve implements suture.Service.
func (j *JobService) Serve(ctx context.Context) error {
	if j.closed.Load() {
		return suture.ErrDoNotRestart
	}
	attempt := j.attempts.Add(1)
	log := logging.Ctx(ctx).With().Str("job", j.name).Int32("attempt", attempt).Logger()

	err := j.run(ctx)
	switch {
	case err == nil:
		log.Info().Msg("Job completed")
		j.finish(nil)
		return suture.ErrDoNotRestart
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return ctx.Err()
	case attempt >= j.maxAttempts:
		log.Error().Err(err).Msg("Job failed, giving up")
		j.finish(err)
		return suture.ErrDoNotRestart
	default:
		log.Warn().Err(err).Msg("Job failed, will retry")
		return fmt.Errorf("%s: %w", j.name, err)
	}
}

func (j *JobService) finish(err error) {
	if j.closed.CompareAndSwap(false, true) {
		if err != nil {
			j.lastErr.Store(&err)
		}
		close(j.done)
	}
}

// Done is closed once the job succeeded or gave up.
func (j *JobService) Done() <-chan struct{} {
	return j.done
}

// Err returns the final error after Done is closed, nil on success.
func (j *JobService) Err() error {
	if p := j.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Attempts returns how many times the job has run.
func (j *JobService) Attempts() int {
	return int(j.attempts.Load())
}

func (j *JobService) String() string {
	return j.name
}
