// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/ml"
	"github.com/tomtom215/sibyl/internal/ml/gbm"
)

// Target names, also used as keys of Forecast.HoldoutRMSE.
const (
	TargetTemp     = "temp_max"
	TargetHumidity = "humidity"
	TargetWind     = "wind_speed"
)

// Targets lists the regression targets in plot order.
var Targets = []string{TargetTemp, TargetHumidity, TargetWind}

// HoldoutFraction is the share of observations held out for RMSE.
const HoldoutFraction = 0.2

// ErrTooFewSamples is returned when the series cannot be split.
var ErrTooFewSamples = errors.New("not enough observations to fit a forecast")

func targetValue(s Sample, target string) float64 {
	switch target {
	case TargetTemp:
		return s.TempMax
	case TargetHumidity:
		return s.Humidity
	default:
		return s.WindSpeed
	}
}

func setTarget(s *Sample, target string, v float64) {
	switch target {
	case TargetTemp:
		s.TempMax = v
	case TargetHumidity:
		s.Humidity = v
	default:
		s.WindSpeed = v
	}
}

// Forecast is the result of one fit-and-extrapolate run.
type Forecast struct {
	City        string             `json:"city"`
	Days        int                `json:"days"`
	Observed    []Sample           `json:"observed"`
	Predicted   []Sample           `json:"predicted"`
	HoldoutRMSE map[string]float64 `json:"holdout_rmse"`
	CacheHit    bool               `json:"cache_hit"`
}

// Forecaster fits one booster per target on calendar features.
type Forecaster struct {
	params gbm.Params
	seed   int64
}

// NewForecaster uses params for every target and seed for the holdout
// split.
func NewForecaster(params gbm.Params, seed int64) *Forecaster {
	params.Objective = gbm.SquaredError
	return &Forecaster{params: params, seed: seed}
}

// Forecast fits on 80% of observed, scores the remaining 20%, and
// predicts days*24 hourly points after the last observation. observed
// must be sorted by time.
func (f *Forecaster) Forecast(observed []Sample, days int) (*Forecast, error) {
	if len(observed) == 0 {
		return nil, ErrEmptyFeed
	}
	if len(observed) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSamples, len(observed))
	}
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	start := time.Now()

	trainIdx, testIdx, err := ml.TrainTestSplit(len(observed), HoldoutFraction, f.seed)
	if err != nil {
		return nil, fmt.Errorf("split observations: %w", err)
	}
	features := make([][]float64, len(observed))
	for i, s := range observed {
		features[i] = CalendarFeatures(s.Time)
	}
	xTrain := ml.SelectRows(features, trainIdx)
	xTest := ml.SelectRows(features, testIdx)

	future := FutureTimes(observed[len(observed)-1].Time, days)
	predicted := make([]Sample, len(future))
	xFuture := make([][]float64, len(future))
	for i, t := range future {
		predicted[i].Time = t
		xFuture[i] = CalendarFeatures(t)
	}

	rmse := make(map[string]float64, len(Targets))
	for _, target := range Targets {
		y := make([]float64, len(observed))
		for i, s := range observed {
			y[i] = targetValue(s, target)
		}
		yTrain := ml.SelectRows(y, trainIdx)
		yTest := ml.SelectRows(y, testIdx)

		booster, err := gbm.Train(xTrain, yTrain, f.params)
		if err != nil {
			return nil, fmt.Errorf("fit %s: %w", target, err)
		}
		testPred, err := booster.PredictBatch(xTest)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", target, err)
		}
		rmse[target] = ml.RMSE(yTest, testPred)

		futurePred, err := booster.PredictBatch(xFuture)
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", target, err)
		}
		for i, v := range futurePred {
			setTarget(&predicted[i], target, v)
		}
	}
	metrics.RecordTraining("weather", time.Since(start))

	return &Forecast{
		Days:        days,
		Observed:    observed,
		Predicted:   predicted,
		HoldoutRMSE: rmse,
	}, nil
}
